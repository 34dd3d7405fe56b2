// Package executor runs external commands with captured output.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs an external command and returns its stdout.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
}

type commandExecutor struct{}

// New returns an Executor backed by os/exec.
func New() Executor {
	return &commandExecutor{}
}

// Execute runs the command under the context's deadline. On failure the
// error carries trimmed stderr so callers can log the tool's own
// diagnostics.
func (e *commandExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("run %s: %w", name, err)
	}

	return stdout.String(), nil
}
