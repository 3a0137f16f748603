package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "install FILE",
		Short: "Install a plugin file",
		Long: `Copy FILE into the install path of the first module that accepts its
extension, then discover the plugins it contains.`,
		Args: cobra.ExactArgs(1),
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			result, err := app.Host.Install(cmd.Context(), app.Plugins, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Installed %s for module %s\n", result.Destination, result.Module)
			fmt.Fprintf(out, "Registered %d plugins\n", result.Report.Registered)
			if result.Report.Err != nil {
				fmt.Fprintf(out, "Some plugins were rejected: %v\n", result.Report.Err)
			}
			return nil
		}),
	}
}
