package cli

import (
	"fmt"
	"io"

	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/spf13/cobra"
)

func newDiscoverCommand(o *options) *cobra.Command {
	var (
		selected []string
		modules  []string
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover plugins",
		Long: `Ask every admitted module to register its plugins. Locations reported by
a module can be narrowed down with --select.`,
		Example: `  # Discover everything
  modhost discover

  # Only look at one file of the manifest module
  modhost discover --module manifest --select ./plugins/effects.yaml`,
		Args: cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			opts := host.DiscoveryOptions{Modules: modules}
			if len(selected) > 0 {
				opts.Select = host.SelectLocations(selected...)
			}

			summary, err := app.Host.Discover(cmd.Context(), app.Plugins, opts)
			if err != nil {
				return fmt.Errorf("discovery interrupted: %w", err)
			}
			printSummary(cmd.OutOrStdout(), summary)

			if strict {
				return summary.Err()
			}
			return nil
		}),
	}

	cmd.Flags().StringSliceVar(&selected, "select", nil, "Only discover at these locations")
	cmd.Flags().StringSliceVar(&modules, "module", nil, "Only run these modules")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any location reports an error")

	return cmd
}

func printSummary(out io.Writer, summary *host.DiscoverySummary) {
	for _, md := range summary.Modules {
		fmt.Fprintf(out, "%s: %d plugins\n", md.Module, md.Registered())
		if md.AutoErr != nil {
			fmt.Fprintf(out, "  auto-register: %v\n", md.AutoErr)
		}
		for _, lr := range md.Locations {
			if lr.Err != nil {
				fmt.Fprintf(out, "  %s: %d registered, %v\n", lr.Location, lr.Registered, lr.Err)
				continue
			}
			fmt.Fprintf(out, "  %s: %d registered\n", lr.Location, lr.Registered)
		}
	}
	fmt.Fprintf(out, "Registered %d plugins\n", summary.Registered())
}
