package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/spf13/cobra"
)

func newModulesCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List loaded modules",
		Long:  `List the modules admitted at startup, followed by the ones that failed to load or initialize.`,
		Args:  cobra.NoArgs,
		RunE:  o.run(runModules),
	}
}

func runModules(cmd *cobra.Command, app *App, args []string) error {
	out := cmd.OutOrStdout()

	entries := app.Host.Registry().List()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No modules loaded.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tVERSION\tSTATE\tEXTENSIONS\tINSTALL PATH")
		for _, e := range entries {
			install := "-"
			if module.SupportsInstall(e) {
				install = e.InstallPath()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Name(), e.Kind(), e.Version(), e.State(), formatExtensions(e.FileExtensions()), install)
		}
		w.Flush()
	}

	failed := app.Startup.Failed()
	if len(failed) > 0 {
		fmt.Fprintf(out, "\n%d modules failed to load:\n", len(failed))
		for _, f := range failed {
			name := f.Name
			if name == "" {
				name = f.Location
			}
			fmt.Fprintf(out, "  %s (%s): %v\n", name, f.Kind, f.Err)
		}
	}
	return nil
}

func formatExtensions(exts []string) string {
	if len(exts) == 0 {
		return "-"
	}
	shown := make([]string, len(exts))
	for i, ext := range exts {
		if ext == "" {
			ext = "*"
		}
		shown[i] = ext
	}
	return strings.Join(shown, ",")
}
