// File: cmd/run.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/internal/browser"
	"github.com/xkilldash9x/signup-cli/internal/config"
	"github.com/xkilldash9x/signup-cli/internal/discovery"
	"github.com/xkilldash9x/signup-cli/internal/engine"
	"github.com/xkilldash9x/signup-cli/internal/observability"
	"github.com/xkilldash9x/signup-cli/internal/orchestrator"
	"github.com/xkilldash9x/signup-cli/internal/reporting"
	"github.com/xkilldash9x/signup-cli/internal/results"
	"github.com/xkilldash9x/signup-cli/internal/targets"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// ErrAutomationNotAllowed is returned by run until the operator opts in.
var ErrAutomationNotAllowed = errors.New("automation is not allowed by configuration")

// Hooks replaced in tests.
var (
	openBrowser         = browser.Open
	orchestratorOptions []orchestrator.Option
	discoveryOptions    []discovery.Option
)

const sessionCloseTimeout = 15 * time.Second

// newRunCmd creates and configures the `run` command.
func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Submit an email address to the signup form of every site in the target list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			logger := observability.GetLogger()

			// 1. Permission gate.
			if !cfg.AutomationAllowed {
				return fmt.Errorf("%w: set \"automation_allowed\": true in %s once you have confirmed "+
					"the target sites permit automated signups", ErrAutomationNotAllowed, a.v.ConfigFileUsed())
			}

			// 2. Email address.
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				var err error
				if email, err = promptEmail(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			email = strings.TrimSpace(email)
			if !emailPattern.MatchString(email) {
				return fmt.Errorf("invalid email address %q", email)
			}

			// 3. Targets.
			urls, err := targets.Load(cfg.Paths.Targets)
			if err != nil {
				return fmt.Errorf("failed to load targets: %w", err)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no target URLs found in %s", cfg.Paths.Targets)
			}
			logger.Info("Loaded targets.", zap.String("path", cfg.Paths.Targets), zap.Int("count", len(urls)))

			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			return execute(ctx, cmd.OutOrStdout(), cfg, logger, urls, email, format, output)
		},
	}

	runCmd.Flags().StringP("email", "e", "", "Email address to sign up. Prompted for when empty.")
	runCmd.Flags().StringP("targets", "t", "", "Target list (.xlsx, .csv or .txt). (Overrides config/env)")
	runCmd.Flags().String("backend", "", "Browser backend: chrome, rod, firefox or static. (Overrides config/env)")
	runCmd.Flags().Bool("headless", false, "Run the browser without a window. (Overrides config/env)")
	runCmd.Flags().IntP("retries", "r", 0, "Extra attempts per site after a failure. (Overrides config/env)")
	runCmd.Flags().StringP("format", "f", "text", "Summary format: 'text' or 'json'.")
	runCmd.Flags().StringP("output", "o", "", "Write the summary to this file instead of stdout.")

	return runCmd
}

// execute wires the run components together and processes urls.
func execute(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger, urls []string, email, format, output string) error {
	// 1. Summary output first so a bad path fails before a browser is started.
	reporter, err := reporting.New(format, output, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close report output.", zap.Error(err))
		}
	}()

	// 2. Browser session.
	sess, err := openBrowser(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			logger.Warn("Error during browser shutdown.", zap.Error(err))
		}
	}()

	// 3. Result files. The failed list is reset here, only once a session exists,
	// so a launch failure keeps the previous run's list.
	store, err := results.Open(cfg.Paths.SuccessLog, cfg.Paths.FailedLog, logger)
	if err != nil {
		return err
	}

	// 4. Attempt pipeline.
	prober := discovery.New(logger, discoveryOptions...)
	orch, err := orchestrator.New(cfg, logger, prober, orchestratorOptions...)
	if err != nil {
		return err
	}
	runner, err := engine.New(cfg, logger, sess, orch, store, reporter)
	if err != nil {
		return err
	}

	// 5. Run.
	summary, err := runner.Run(ctx, urls, email)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Run aborted by signal.", zap.String("run_id", summary.RunID), zap.Int("processed", len(summary.Outcomes)))
		}
		return err
	}

	successPath, failedPath := store.Paths()
	fmt.Fprintf(out, "\nRun %s complete: %d succeeded, %d failed.\n", summary.RunID, summary.Succeeded, summary.Failed)
	fmt.Fprintf(out, "Outcomes appended to %s\n", successPath)
	if summary.Failed > 0 {
		fmt.Fprintf(out, "Failed sites listed in %s\n", failedPath)
	}
	return nil
}

// promptEmail asks for the address on the console.
func promptEmail(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Email address to sign up: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read email: %w", err)
	}
	return strings.TrimSpace(line), nil
}
