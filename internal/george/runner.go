// Package george exposes the host's script execution primitive to the
// pipeline server as the execute_george method.
package george

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes one script and returns its textual output. It stands in
// for the host's native execution primitive.
type Runner interface {
	Execute(ctx context.Context, script string) (string, error)
}

// ExecRunner runs scripts through an interpreter command; the script is
// appended as the final argument. Output is captured from both streams.
type ExecRunner struct {
	command []string
	logger  *slog.Logger
}

// NewExecRunner creates a runner. command must name the interpreter binary,
// optionally followed by fixed arguments.
func NewExecRunner(command []string, logger *slog.Logger) *ExecRunner {
	return &ExecRunner{command: command, logger: logger}
}

// Execute implements Runner.
func (r *ExecRunner) Execute(ctx context.Context, script string) (string, error) {
	if len(r.command) == 0 {
		return "", fmt.Errorf("george: no interpreter command configured")
	}
	args := append(append([]string{}, r.command[1:]...), script)
	cmd := exec.CommandContext(ctx, r.command[0], args...)

	out, err := cmd.CombinedOutput()
	text := strings.TrimRight(string(out), "\n")
	if err != nil {
		r.logger.Warn("script failed", "error", err, "output", text)
		if text != "" {
			return text, fmt.Errorf("george: %v: %s", err, text)
		}
		return text, fmt.Errorf("george: %w", err)
	}
	return text, nil
}
