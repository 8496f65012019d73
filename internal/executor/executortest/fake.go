// Package executortest provides a scripted executor.Runner for tests.
package executortest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alarmdecoder/webconsole/internal/executor"
)

// Response is the canned outcome for one command line
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // returned as-is when set, overriding ExitCode
}

// Runner answers commands from a table keyed by the full command line
// ("git rev-parse HEAD"). Unscripted commands exit 127.
type Runner struct {
	mu        sync.Mutex
	responses map[string][]Response
	missing   map[string]bool
	calls     []executor.Command
}

// New creates an empty scripted runner
func New() *Runner {
	return &Runner{
		responses: make(map[string][]Response),
		missing:   make(map[string]bool),
	}
}

// On queues a response for the given command line. Multiple responses for
// the same line are consumed in order; the last one repeats.
func (r *Runner) On(line string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = append(r.responses[line], resp)
	return r
}

// OnOutput is shorthand for a successful command printing stdout
func (r *Runner) OnOutput(line, stdout string) *Runner {
	return r.On(line, Response{Stdout: stdout})
}

// OnFail is shorthand for a command exiting 1 with stderr
func (r *Runner) OnFail(line, stderr string) *Runner {
	return r.On(line, Response{ExitCode: 1, Stderr: stderr})
}

// Missing marks a program as not installed
func (r *Runner) Missing(name string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[name] = true
	return r
}

// LookPath implements executor.Runner
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Run implements executor.Runner
func (r *Runner) Run(ctx context.Context, cmd executor.Command) (executor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, cmd)
	line := cmd.String()

	if r.missing[cmd.Name] {
		return executor.Result{ExitCode: -1}, fmt.Errorf("failed to run %s: executable file not found", line)
	}

	queue, ok := r.responses[line]
	if !ok || len(queue) == 0 {
		return executor.Result{ExitCode: 127}, &executor.ExitError{Command: line, ExitCode: 127, Stderr: "unscripted command"}
	}
	resp := queue[0]
	if len(queue) > 1 {
		r.responses[line] = queue[1:]
	}

	res := executor.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.ExitCode != 0 {
		return res, &executor.ExitError{Command: line, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return res, nil
}

// Calls returns every command line run so far, in order
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

// Commands returns every command run so far, in order
func (r *Runner) Commands() []executor.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.Command(nil), r.calls...)
}

// Ran reports whether any command line starting with prefix was run
func (r *Runner) Ran(prefix string) bool {
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
