// Package provision applies the bootstrap steps to a Debian host.
//
// Every step is an "ensure" operation: it inspects the current state, changes
// only what is missing (or rewrites files whose content is static) and can be
// re-run safely. Steps are not safe to run concurrently with another bootstrap
// process; there is no locking.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
	"github.com/seferino-fernandez/scripts/logging"
)

// Package-level logger for provisioning steps
var log = logging.NewLogger("provision")

// Result is the captured output of an external command.
type Result struct {
	Output string
}

// Runner executes external system utilities.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// CommandError reports which external command failed and its exit status.
type CommandError struct {
	Command  []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", strings.Join(e.Command, " "), e.ExitCode)
	if out := lastLine(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StepError wraps the failure of a named pipeline step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Step is one named, idempotent unit of the bootstrap procedure.
type Step struct {
	Name  string
	Label string
	Apply func(ctx context.Context, h *Host, cfg *config.Config) error
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
