// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/signup-cli/internal/browser"
	"github.com/xkilldash9x/signup-cli/internal/observability"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	openBrowser = browser.Open
	orchestratorOptions = nil
	discoveryOptions = nil
	t.Cleanup(func() {
		observability.ResetForTest()
		openBrowser = browser.Open
		orchestratorOptions = nil
		discoveryOptions = nil
	})
}

// writeConfig writes a JSON config into dir. Keys in overrides replace the quiet test
// defaults below; anything else falls back to the built-in defaults.
func writeConfig(t *testing.T, dir string, overrides map[string]interface{}) string {
	t.Helper()
	settings := map[string]interface{}{
		"logger": map[string]interface{}{
			"level":    "fatal",
			"format":   "console",
			"log_file": "",
		},
		"paths": map[string]interface{}{
			"targets":     filepath.Join(dir, "targets.txt"),
			"success_log": filepath.Join(dir, "signup_successes.csv"),
			"failed_log":  filepath.Join(dir, "failed_sites.txt"),
		},
		"browser": map[string]interface{}{
			"backend": "static",
		},
	}
	for k, v := range overrides {
		settings[k] = v
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// executeCommand runs a fresh root command and returns its combined output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
