package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/waypoint/internal/domain/entity"
	urlutil "github.com/bnema/waypoint/internal/domain/url"
)

var overrideClear bool

var overrideCmd = &cobra.Command{
	Use:   "override [url]",
	Short: "Queue a one-shot destination for the primary surface",
	Long: `Write a one-shot override URL. A running 'waypoint run' picks it up on
its next poll, closes any popups and loads it in the primary surface. The URL
is consumed exactly once.

Examples:
  waypoint override example.com/promo
  waypoint override --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOverride,
}

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.Flags().BoolVar(&overrideClear, "clear", false, "drop a pending override without loading it")
}

func runOverride(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx := a.Ctx()
	out := cmd.OutOrStdout()

	if overrideClear {
		pending := a.Launch.TakeOverrideURL(ctx)
		if pending == "" {
			fmt.Fprintln(out, a.Renderer.RenderSuccess("no override pending"))
			return nil
		}
		fmt.Fprintln(out, a.Renderer.RenderSuccess("dropped "+pending))
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("url required (or --clear)")
	}
	target := urlutil.Normalize(args[0])
	if !entity.IsWebScheme(target) {
		return fmt.Errorf("override must be an http(s) url, got %q", args[0])
	}
	if err := a.Launch.SetOverrideURL(ctx, target); err != nil {
		return fmt.Errorf("store override: %w", err)
	}
	fmt.Fprintln(out, a.Renderer.RenderSuccess("override queued: "+target))
	return nil
}
