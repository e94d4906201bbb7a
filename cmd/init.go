// File: cmd/init.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/signup-cli/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file if it does not exist",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Prepare(a.v, a.cfgFile)
			path := a.v.ConfigFileUsed()

			created, err := config.EnsureFile(a.v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "Configuration already exists at %s; left unchanged.\n", path)
				return nil
			}
			fmt.Fprintf(out, "Wrote default configuration to %s.\n", path)
			fmt.Fprintln(out, "Review it and set \"automation_allowed\": true once you are permitted to submit forms on the target sites.")
			return nil
		},
	}
}
