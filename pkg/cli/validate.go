package cli

import (
	"fmt"

	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/spf13/cobra"
)

func newValidateCommand(o *options) *cobra.Command {
	var thorough bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate discovered plugins",
		Long: `Discover plugins, then ask their modules whether each one is still valid.
The default check is fast; --thorough lets modules inspect the plugin fully.`,
		Args: cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			if _, err := app.Host.Discover(cmd.Context(), app.Plugins, host.DiscoveryOptions{}); err != nil {
				return fmt.Errorf("discovery interrupted: %w", err)
			}

			report, err := app.Plugins.Revalidate(cmd.Context(), !thorough)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked %d plugins\n", report.Checked)
			for _, id := range report.Stale {
				desc, err := app.Plugins.Get(id)
				if err != nil {
					continue
				}
				fmt.Fprintf(out, "  stale: %s (%s) at %s\n", desc.Name(), desc.Module, desc.Path())
			}

			if len(report.Stale) > 0 {
				return fmt.Errorf("%d of %d plugins are not valid", len(report.Stale), report.Checked)
			}
			fmt.Fprintln(out, "All plugins are valid")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&thorough, "thorough", false, "Run the full validity check")

	return cmd
}
