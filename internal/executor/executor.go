package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Command describes a single external program invocation
type Command struct {
	Name    string        // Program name or path (e.g., "git", "pip")
	Args    []string      // Arguments passed to the program
	Dir     string        // Working directory; empty means the current directory
	Env     []string      // Extra environment entries in KEY=VALUE form
	Timeout time.Duration // Zero means bounded only by the context
}

// String renders the command line for logs
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured outcome of a finished command
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner is the narrow capability the updater needs from the host:
// run a program and capture its output, and look a program up on PATH.
type Runner interface {
	// Run executes cmd and returns its captured output. A non-zero exit
	// status is reported as an *ExitError alongside the populated Result.
	Run(ctx context.Context, cmd Command) (Result, error)

	// LookPath reports the resolved path of a program, or an error when it
	// is not installed.
	LookPath(name string) (string, error)
}

// ExitError is returned when a command ran but exited non-zero
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.ExitCode, msg)
}

// TimeoutError is returned when a command exceeded its Timeout
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Command, e.Timeout)
}
