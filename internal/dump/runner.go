package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrToolFailed is returned when an external tool exits non-zero.
var ErrToolFailed = errors.New("external tool failed")

// Command describes one external tool invocation. Stdout, when set, receives
// the tool's standard output.
type Command struct {
	Name   string
	Args   []string
	Env    []string
	Stdout io.Writer
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ToolError carries the exit code and captured stderr of a failed tool.
type ToolError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, msg)
}

func (e *ToolError) Unwrap() error { return ErrToolFailed }

// ExecRunner runs tools with os/exec, inheriting the process environment.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = c.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Name: c.Name, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("running %s: %w", c.Name, err)
}
