package updater

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrUnknownComponent is returned by Update for a name that is not registered
	ErrUnknownComponent = errors.New("unknown component")

	// ErrCompensationFailed wraps a failed rollback after a failed update;
	// the installation may be left in a mixed state.
	ErrCompensationFailed = errors.New("update rollback failed")
)

// Component is an independently updatable unit
type Component interface {
	Name() string
	Refresh(ctx context.Context)
	NeedsUpdate() bool
	Status() Status
	Update(ctx context.Context) (Result, error)
}

// ResultStatus is the outcome of a component update
type ResultStatus string

const (
	StatusPass ResultStatus = "PASS"
	StatusFail ResultStatus = "FAIL"
)

// Result is the record returned by a component update
type Result struct {
	Status          ResultStatus `json:"status" yaml:"status"`
	RestartRequired bool         `json:"restart_required" yaml:"restart_required"`
}

// Passed reports whether the update succeeded
func (r Result) Passed() bool {
	return r.Status == StatusPass
}

type loggerKey struct{}

// ContextWithLogger attaches a logger that components use instead of their
// own for the duration of a call, e.g. to capture output into a job log.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
