// Package runner runs package manager command lines in a project directory.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"bpsdk-setup/internal/logger"
)

// Runner runs a shell command line in dir and returns its combined stdout
// and stderr. A command that exits non-zero returns an *ExitError.
type Runner interface {
	Run(ctx context.Context, dir, command string) (string, error)
}

// ExitError reports a command that finished with a non-zero status.
type ExitError struct {
	Command string
	Status  int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Command, e.Status)
}

// Shell interprets command lines with a POSIX shell interpreter built into
// the binary, so "a && b" behaves the same on every platform. Programs the
// line calls (npm, yarn, ...) are started from PATH.
type Shell struct {
	// Env is the environment passed to the command; nil uses os.Environ().
	Env []string
}

// NewShell returns a Shell using the process environment.
func NewShell() *Shell {
	return &Shell{}
}

// Run implements Runner.
func (s *Shell) Run(ctx context.Context, dir, command string) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return "", fmt.Errorf("failed to parse %q: %w", command, err)
	}

	env := s.Env
	if env == nil {
		env = os.Environ()
	}

	var out lockedBuffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create interpreter: %w", err)
	}

	logger.Debug("[DEBUG] Running in %s: %s\n", dir, command)
	err = runner.Run(ctx, prog)
	output := out.String()
	logger.Debug("[DEBUG] Output:\n%s\n", output)

	if err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return output, &ExitError{Command: command, Status: int(status), Output: output}
		}
		return output, fmt.Errorf("failed to run %q: %w", command, err)
	}
	return output, nil
}

// lockedBuffer lets stdout and stderr share one buffer; child processes
// write to both from separate goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
