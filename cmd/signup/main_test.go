// File: cmd/signup/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(context.Canceled))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("no target URLs found")))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	var (
		written  string
		exitWith = -1
	)
	osWriteFile = func(name string, data []byte, perm os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = string(data)
		return nil
	}
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("boom")
	}()

	require.Equal(t, 2, exitWith)
	assert.Contains(t, written, "panic: boom")
	assert.Contains(t, written, "goroutine")
}

func TestHandlePanicWriteFailure(t *testing.T) {
	defer resetMocks()

	exitWith := -1
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only filesystem") }
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("boom")
	}()

	assert.Equal(t, 2, exitWith)
}

func TestHandlePanicNoPanic(t *testing.T) {
	defer resetMocks()

	called := false
	osExit = func(int) { called = true }
	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
