package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

var (
	// ErrCommandNotFound is returned when the speech binary is not found.
	ErrCommandNotFound = errors.New("speech command not found")
)

// CommandConfig holds configuration for the external-command backend.
type CommandConfig struct {
	// BinaryPath is the path to the speech executable.
	BinaryPath string
	// ExtraArgs are appended to every invocation.
	ExtraArgs []string
	// DefaultVoice is passed as --voice when the utterance names none.
	DefaultVoice string
}

// CommandSynthesizer speaks through an external program such as espeak-ng,
// feeding the utterance text on stdin. It has no access to the engine's
// word timing, so it reports no boundary support.
type CommandSynthesizer struct {
	config CommandConfig
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandSynthesizer creates a command backend after verifying the
// binary is on PATH.
func NewCommandSynthesizer(cfg CommandConfig, logger *slog.Logger) (*CommandSynthesizer, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "espeak-ng"
	}

	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cfg.BinaryPath)
	}

	return &CommandSynthesizer{
		config: cfg,
		logger: logger,
	}, nil
}

// Name returns the backend identifier.
func (c *CommandSynthesizer) Name() string {
	return "command"
}

// SupportsBoundaries always reports false; an external process gives no
// word-timing feedback.
func (c *CommandSynthesizer) SupportsBoundaries(lang string) bool {
	return false
}

// Speak runs the configured command with the utterance text on stdin. The
// command runs in the background; OnEnd fires when it exits cleanly.
func (c *CommandSynthesizer) Speak(u Utterance, cb Callbacks) error {
	if u.Text == "" {
		return ErrEmptyText
	}

	args := append([]string(nil), c.config.ExtraArgs...)

	voice := u.Voice.Name
	if voice == "" {
		voice = c.config.DefaultVoice
	}
	if voice != "" {
		args = append(args, "--voice", voice)
	}
	if u.Rate > 0 && u.Rate != 1 {
		args = append(args, "--rate", fmt.Sprintf("%.2f", u.Rate))
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debug("running speech command",
		"binary", c.config.BinaryPath,
		"voice", voice,
		"text_length", len(u.Text),
	)

	cmd := exec.CommandContext(ctx, c.config.BinaryPath, args...)
	cmd.Stdin = bytes.NewReader([]byte(u.Text))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	go func() {
		err := cmd.Wait()
		if ctx.Err() != nil {
			// Superseded or cancelled, stay quiet.
			return
		}
		cancel()
		if err != nil {
			c.logger.Error("speech command failed",
				"error", err,
				"stderr", stderr.String(),
			)
			if cb.OnError != nil {
				cb.OnError(fmt.Errorf("%w: %v", ErrSynthesisFailed, err))
			}
			return
		}
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}()

	return nil
}

// Cancel kills the in-flight command, if any.
func (c *CommandSynthesizer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
