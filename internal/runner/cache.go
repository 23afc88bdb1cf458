package runner

import (
	"context"
	"os/exec"
	"time"

	"github.com/fastbench/fbench/internal/domain"
)

// CommandCache invokes the configured external cache purge command via the
// shell and blocks until it completes or the timeout expires.
type CommandCache struct {
	Command string
	Timeout time.Duration
}

// Purge runs the purge command. A missing command is a configuration error;
// a failing or timed-out one is an external command error. Both are fatal to
// a cold run.
func (c *CommandCache) Purge(ctx context.Context) error {
	if c.Command == "" {
		return &domain.ConfigError{Field: "cache.cold_command", Reason: "cold cache policy requires a purge command"}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	if err := cmd.Run(); err != nil {
		return &domain.ExternalCommandError{Command: c.Command, Err: err}
	}
	return nil
}
