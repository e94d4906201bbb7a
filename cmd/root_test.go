// File: cmd/root_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "signup-cli version "+Version)

	out, err = executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signup-cli version "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "newsletter signup form")
}

func TestInitCmd(t *testing.T) {
	resetForTest(t)
	path := filepath.Join(t.TempDir(), "conf", "signup.json")

	out, err := executeCommand(t, "", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"automation_allowed": false`)
	assert.Contains(t, string(content), `"confirmation_keywords"`)

	out, err = executeCommand(t, "", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestConfigLoadFailure(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{"retries": -1})

	_, err := executeCommand(t, "", "doctor", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestDoctorCmd(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, nil)

	out, err := executeCommand(t, "", "doctor", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Backend "static" needs no external executables.`)

	// The flag overrides the configured backend; a bogus driver path cannot resolve.
	path = writeConfig(t, dir, map[string]interface{}{
		"browser": map[string]interface{}{
			"backend":     "static",
			"driver_path": filepath.Join(dir, "no-such-geckodriver"),
			"binary":      filepath.Join(dir, "no-such-firefox"),
		},
	})
	out, err = executeCommand(t, "", "doctor", "--config", path, "--backend", "firefox")
	require.Error(t, err)
	assert.Contains(t, out, "missing")
	assert.Contains(t, err.Error(), "geckodriver")
}
