package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/waypoint/internal/cli"
	"github.com/bnema/waypoint/internal/domain/entity"
)

var (
	resetCookies bool
	resetAll     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the routing decision",
	Long: `Clear the persisted mode and cached destination so the next launch runs
the first-launch decision again.

Use --cookies to also empty the cookie jar, or --all to additionally forget
the push permission history, the pending override and the install id.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetCookies, "cookies", false, "also empty the persisted cookie jar")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "clear every persisted launch key")
}

func runReset(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx := a.Ctx()

	if err := a.Launch.Reset(ctx); err != nil {
		return fmt.Errorf("reset launch state: %w", err)
	}
	cleared := "routing decision"

	if resetAll {
		if err := clearKeys(a, extraResetKeys...); err != nil {
			return err
		}
		cleared = "all launch state"
	}
	if resetCookies || resetAll {
		if err := a.Cookies.Save(ctx, entity.CookieJar{}); err != nil {
			return fmt.Errorf("clear cookie jar: %w", err)
		}
		cleared += " and cookies"
	}

	fmt.Fprintln(cmd.OutOrStdout(), a.Renderer.RenderSuccess("cleared "+cleared))
	return nil
}

var extraResetKeys = []entity.StoreKey{
	entity.KeyLastPushPromptAt,
	entity.KeyPushPermissionGranted,
	entity.KeyPushToken,
	entity.KeyOverrideURL,
	entity.KeyInstallID,
}

func clearKeys(a *cli.App, keys ...entity.StoreKey) error {
	for _, key := range keys {
		if err := a.KV.Delete(a.Ctx(), key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
