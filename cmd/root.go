// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/internal/config"
	"github.com/xkilldash9x/signup-cli/internal/observability"
)

// skipConfig marks commands that must work without a loaded configuration.
const skipConfig = "skip-config"

// app carries the state shared by the commands of one root command instance.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree. Each call has its own viper instance so
// flags and configuration never leak between executions.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "signup-cli",
		Short: "signup-cli submits an email address to newsletter signup forms across a list of sites.",
		Long: `signup-cli visits every site in a target list, looks for a newsletter signup form,
submits the given email address and records whether the site confirmed it.

Only use it on sites whose operators permit automated form submission. Runs are
refused until automation_allowed is set to true in the configuration file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" || cmd.Name() == "help" {
				return nil
			}
			return a.loadConfig(cmd)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.json)")

	rootCmd.AddCommand(
		newRunCmd(a),
		newInitCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// flagKeys maps command flags to the configuration keys they override.
var flagKeys = map[string]string{
	"backend":  "browser.backend",
	"headless": "headless",
	"retries":  "retries",
	"targets":  "paths.targets",
}

// loadConfig binds the executing command's override flags, reads the configuration
// (creating it with defaults when missing) and initializes the global logger from it.
func (a *app) loadConfig(cmd *cobra.Command) error {
	config.Prepare(a.v, a.cfgFile)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg, created, err := config.Load(a.v)
	if err != nil {
		// Initialize a fallback logger so the failure is still reported consistently.
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "signup-cli"})
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	observability.InitializeLogger(cfg.Logger)
	a.cfg = cfg

	logger := observability.GetLogger()
	if created {
		logger.Info("Created default configuration file.", zap.String("path", a.v.ConfigFileUsed()))
	}
	logger.Debug("Configuration loaded.",
		zap.String("path", a.v.ConfigFileUsed()),
		zap.String("version", Version),
		zap.String("backend", cfg.Browser.Backend),
	)
	return nil
}

// Execute runs the root command with the signal-aware ctx from main.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	logger := observability.GetLogger()
	if errors.Is(err, context.Canceled) {
		logger.Warn("Run interrupted.")
	} else {
		logger.Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}
