// SPDX-License-Identifier: MIT
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes git commands in a given repo directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in dir and returns its captured stdout and
	// stderr. err is non-nil when the process could not start, exited
	// non-zero, or ran past its deadline.
	Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
	// Timeout bounds each invocation. Zero disables the limit.
	Timeout time.Duration
}

// CommandError describes a git invocation that did not succeed.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := "git " + strings.Join(e.Args, " ")
	if text := strings.TrimSpace(e.Stderr); text != "" {
		return msg + ": " + text
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Run executes a git command.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if strings.TrimSpace(dir) != "" {
		cmd.Dir = dir
	}
	// Never block a worker slot on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), nil
	}
	cmdErr := &CommandError{Args: args, Stderr: stderr.String(), ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		cmdErr.Err = ctxErr
	}
	return stdout.String(), stderr.String(), cmdErr
}

// ExitCode extracts the process exit code from an error returned by Run.
// It returns 0 for nil and -1 when no exit code is available.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// OutputText picks the most useful human-readable text of a call: stderr,
// then stdout, then the error itself.
func OutputText(stdout, stderr string, err error) string {
	if text := strings.TrimSpace(stderr); text != "" {
		return text
	}
	if text := strings.TrimSpace(stdout); text != "" {
		return text
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
