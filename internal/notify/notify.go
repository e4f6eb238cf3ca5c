// Package notify delivers desktop notifications. The scheduler treats
// dispatch as fire-and-forget: a failed Show is logged by the caller and
// never retried.
package notify

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

type Dispatcher interface {
	Show(title, body string) error
}

const execTimeout = 10 * time.Second

// ExecDispatcher shells out to a notifier command (notify-send, osascript
// wrappers, terminal-notifier, ...). Title and body are appended to the
// configured arguments.
type ExecDispatcher struct {
	command string
	args    []string
}

func NewExecDispatcher(command string, args ...string) (*ExecDispatcher, error) {
	if command == "" {
		return nil, errors.New("notify: command is required")
	}
	return &ExecDispatcher{command: command, args: args}, nil
}

func (d *ExecDispatcher) Show(title, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	args := make([]string, 0, len(d.args)+2)
	args = append(args, d.args...)
	args = append(args, title, body)

	cmd := exec.CommandContext(ctx, d.command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &DispatchError{Command: d.command, Output: string(out), Err: err}
	}
	return nil
}

type DispatchError struct {
	Command string
	Output  string
	Err     error
}

func (e *DispatchError) Error() string {
	return "notify: " + e.Command + " failed: " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error { return e.Err }

// LogDispatcher writes notifications to the log. Used when no notifier
// command is configured, and in tests.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Show(title, body string) error {
	d.log.Info().Str("title", title).Str("body", body).Msg("notification")
	return nil
}
