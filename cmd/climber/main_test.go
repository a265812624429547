// File: cmd/climber/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/climber/cmd"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("login failed")))
}

func TestMainUsesExitCode(t *testing.T) {
	defer resetMocks()
	var code = -1
	osExit = func(c int) { code = c }
	execute = func(ctx context.Context) error { return errors.New("boom") }

	main()
	assert.Equal(t, 1, code)
}

func TestHandlePanic(t *testing.T) {
	t.Run("WritesPanicLog", func(t *testing.T) {
		defer resetMocks()
		var (
			written []byte
			file    string
			code    = -1
		)
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			file, written = name, data
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("selector exploded")
		}()

		assert.Equal(t, panicLogFile, file)
		assert.True(t, strings.HasPrefix(string(written), "panic: selector exploded"))
		assert.Equal(t, 2, code)
	})

	t.Run("LogWriteFails", func(t *testing.T) {
		defer resetMocks()
		code := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("again")
		}()
		assert.Equal(t, 2, code)
	})

	t.Run("NoPanic", func(t *testing.T) {
		defer resetMocks()
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		require.False(t, called)
	})
}
