package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/spf13/cobra"
)

func newPluginsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List and toggle discovered plugins",
		Long: `Inspect discovered plugins and switch them on or off. With a store
configured the enabled flags are kept between runs.`,
	}

	cmd.AddCommand(newPluginsListCommand(o))
	cmd.AddCommand(newPluginsToggleCommand(o, "enable", true))
	cmd.AddCommand(newPluginsToggleCommand(o, "disable", false))

	return cmd
}

func newPluginsListCommand(o *options) *cobra.Command {
	var (
		kind       string
		moduleName string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Discover and list plugins",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			if _, err := app.Host.Discover(cmd.Context(), app.Plugins, host.DiscoveryOptions{}); err != nil {
				return fmt.Errorf("discovery interrupted: %w", err)
			}

			descs := app.Plugins.List()
			out := cmd.OutOrStdout()
			if len(descs) == 0 {
				fmt.Fprintln(out, "No plugins found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODULE\tKIND\tENABLED\tPATH")
			for _, d := range descs {
				if kind != "" && d.Kind != kind {
					continue
				}
				if moduleName != "" && d.Module != moduleName {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", d.ID, d.Name(), d.Module, d.Kind, d.Enabled, d.Path())
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list plugins of this kind")
	cmd.Flags().StringVar(&moduleName, "module", "", "Only list plugins of this module")

	return cmd
}

func newPluginsToggleCommand(o *options, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID",
		Short: fmt.Sprintf("Mark a plugin as %sd", verb),
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			if _, err := app.Host.Discover(cmd.Context(), app.Plugins, host.DiscoveryOptions{}); err != nil {
				return fmt.Errorf("discovery interrupted: %w", err)
			}

			id := module.PluginID(args[0])
			if err := app.Plugins.SetEnabled(id, enabled); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plugin %s %sd\n", id, verb)
			if !app.Persistent() {
				fmt.Fprintln(out, "No store configured, the change lasts for this run only")
			}
			return nil
		}),
	}
}
