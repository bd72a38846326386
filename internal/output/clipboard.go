// Package output delivers committed answers outside the terminal.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/logging"
)

const defaultClipboardTimeout = 2 * time.Second

// Clipboard copies each answer through the configured command's stdin.
type Clipboard struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClipboard returns nil when the clipboard is disabled so callers can skip
// wiring it.
func NewClipboard(cfg config.ClipboardConfig, logger *slog.Logger) *Clipboard {
	if !cfg.Enable {
		return nil
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Clipboard{
		argv:    append([]string(nil), cfg.Cmd.Argv...),
		timeout: defaultClipboardTimeout,
		logger:  logger,
	}
}

// Deliver writes answer to the clipboard. Blank answers are skipped.
func (c *Clipboard) Deliver(ctx context.Context, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := runWithInput(runCtx, c.argv, answer); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logger.Debug("answer copied to clipboard", "answer_length", len(answer))
	return nil
}

// runWithInput runs argv with input on stdin and waits for it to exit.
func runWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return errors.New("command argv cannot be empty")
	}

	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run %s: %w (%s)", argv[0], err, msg)
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}
