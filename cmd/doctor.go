// File: cmd/doctor.go
package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/signup-cli/internal/browser"
)

func newDoctorCmd(a *app) *cobra.Command {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the executables the selected browser backend needs are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			reqs := browser.Check(cfg)
			out := cmd.OutOrStdout()

			if len(reqs) == 0 {
				fmt.Fprintf(out, "Backend %q needs no external executables.\n", cfg.Browser.Backend)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetTitle(fmt.Sprintf("Backend %s", cfg.Browser.Backend))
			t.AppendHeader(table.Row{"Requirement", "Status", "Path", "Hint"})
			for _, r := range reqs {
				status, hint := "ok", ""
				switch {
				case !r.Found && r.Optional:
					status, hint = "optional", r.Hint
				case !r.Found:
					status, hint = "missing", r.Hint
				}
				t.AppendRow(table.Row{r.Name, status, r.Path, hint})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()

			if !browser.Ready(reqs) {
				return fmt.Errorf("backend %q is not ready: %s", cfg.Browser.Backend, browser.Remediation(cfg.Browser.Backend))
			}
			fmt.Fprintln(out, "All required executables found.")
			return nil
		},
	}
	doctorCmd.Flags().String("backend", "", "Backend to check: chrome, rod, firefox or static. (Overrides config/env)")
	return doctorCmd
}
