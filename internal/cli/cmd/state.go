package cmd

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/bnema/waypoint/internal/cli"
	"github.com/bnema/waypoint/internal/cli/styles"
	"github.com/bnema/waypoint/internal/domain/entity"
)

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted launch state",
	Long: `Show the routing decision persisted by previous launches: the sticky
mode, the cached destination and its expiry, the last push permission ask,
any pending override URL and the number of stored cookies.`,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "print the state as JSON")
}

// stateDocument is the --json shape of `waypoint state`.
type stateDocument struct {
	Mode           string     `json:"mode"`
	HasRunBefore   bool       `json:"has_run_before"`
	Destination    string     `json:"destination,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Expired        bool       `json:"expired"`
	OverrideURL    string     `json:"override_url,omitempty"`
	LastPushPrompt *time.Time `json:"last_push_prompt,omitempty"`
	PushGranted    bool       `json:"push_granted"`
	InstallID      string     `json:"install_id,omitempty"`
	Cookies        int        `json:"cookies"`
	Database       string     `json:"database"`
}

func runState(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	view, err := collectState(a)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stateJSON {
		data, err := sonic.ConfigStd.MarshalIndent(toStateDocument(view), "", "  ")
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, a.Renderer.RenderState(view))
	return nil
}

func collectState(a *cli.App) (styles.StateView, error) {
	ctx := a.Ctx()
	jar, err := a.Cookies.Load(ctx)
	if err != nil {
		return styles.StateView{}, fmt.Errorf("load cookie jar: %w", err)
	}
	// Read directly so inspecting the state never mints an install id.
	installID, _, err := a.KV.Get(ctx, entity.KeyInstallID)
	if err != nil {
		return styles.StateView{}, fmt.Errorf("read install id: %w", err)
	}

	lastAsk, _ := a.Launch.LastPushPromptAt(ctx)
	return styles.StateView{
		Mode:           a.Launch.Mode(ctx),
		HasRunBefore:   a.Launch.HasRunBefore(ctx),
		Route:          a.Launch.Route(ctx),
		Now:            time.Now(),
		LastPushPrompt: lastAsk,
		PushGranted:    a.Launch.PushGranted(ctx),
		InstallID:      installID,
		PendingURL:     a.Launch.PeekOverrideURL(ctx),
		CookieCount:    jar.Len(),
		DatabasePath:   a.DatabasePath(),
	}, nil
}

func toStateDocument(v styles.StateView) stateDocument {
	doc := stateDocument{
		Mode:         string(v.Mode),
		HasRunBefore: v.HasRunBefore,
		OverrideURL:  v.PendingURL,
		PushGranted:  v.PushGranted,
		InstallID:    v.InstallID,
		Cookies:      v.CookieCount,
		Database:     v.DatabasePath,
	}
	if doc.Mode == "" {
		doc.Mode = "unset"
	}
	if v.Route != nil {
		expires := v.Route.ExpiresAt
		doc.Destination = v.Route.DestinationURL
		doc.ExpiresAt = &expires
		doc.Expired = v.Route.IsExpired(v.Now)
	}
	if !v.LastPushPrompt.IsZero() {
		asked := v.LastPushPrompt
		doc.LastPushPrompt = &asked
	}
	return doc
}
