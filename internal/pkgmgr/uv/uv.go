package uv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alarmdecoder/webconsole/internal/executor"
	"github.com/alarmdecoder/webconsole/internal/pkgmgr"
)

func init() {
	pkgmgr.Register("uv", func(runner executor.Runner, customPath string) (pkgmgr.PackageManager, error) {
		return NewWithPath(runner, customPath)
	})
}

// ErrUserScope is returned when a user-scope install is requested; uv only
// installs into a virtualenv or the system interpreter.
var ErrUserScope = errors.New("uv does not support user-scope installs")

// UvManager implements the PackageManager interface using `uv pip`
type UvManager struct {
	runner executor.Runner
	uvPath string
}

// New creates a new UvManager that finds uv on PATH
func New(runner executor.Runner) (*UvManager, error) {
	return NewWithPath(runner, "")
}

// NewWithPath creates a new UvManager with a custom uv binary path
func NewWithPath(runner executor.Runner, customPath string) (*UvManager, error) {
	uvPath := customPath
	if uvPath == "" {
		path, err := runner.LookPath("uv")
		if err != nil {
			return nil, fmt.Errorf("uv not found in PATH: %w", err)
		}
		uvPath = path
	}
	return &UvManager{runner: runner, uvPath: uvPath}, nil
}

// Name returns the package manager name
func (u *UvManager) Name() string {
	return "uv"
}

// List returns installed packages via `uv pip list --format json`
func (u *UvManager) List(ctx context.Context) ([]pkgmgr.Package, error) {
	res, err := u.runner.Run(ctx, executor.Command{
		Name: u.uvPath,
		Args: []string{"pip", "list", "--format", "json"},
	})
	if err != nil {
		return nil, fmt.Errorf("uv pip list failed: %w", err)
	}

	var pkgs []pkgmgr.Package
	if err := json.Unmarshal([]byte(res.Stdout), &pkgs); err != nil {
		return nil, fmt.Errorf("failed to parse uv pip list output: %w", err)
	}
	return pkgs, nil
}

// Install adds packages with `uv pip install`
func (u *UvManager) Install(ctx context.Context, opts pkgmgr.InstallOptions) error {
	if len(opts.Packages) == 0 {
		return fmt.Errorf("no packages specified")
	}

	scope := opts.Scope
	if scope == "" {
		scope = pkgmgr.DetectScope()
	}

	args := []string{"pip", "install"}
	switch scope {
	case pkgmgr.ScopeUser:
		return ErrUserScope
	case pkgmgr.ScopeSystem:
		args = append(args, "--system")
	}
	args = append(args, opts.Packages...)

	res, err := u.runner.Run(ctx, executor.Command{Name: u.uvPath, Args: args})
	if opts.LogWriter != nil {
		io.WriteString(opts.LogWriter, res.Stdout)
		io.WriteString(opts.LogWriter, res.Stderr)
	}
	if err != nil {
		return fmt.Errorf("uv pip install %s failed: %w", strings.Join(opts.Packages, " "), err)
	}
	return nil
}
