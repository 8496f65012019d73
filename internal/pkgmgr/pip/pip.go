package pip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alarmdecoder/webconsole/internal/executor"
	"github.com/alarmdecoder/webconsole/internal/pkgmgr"
)

func init() {
	pkgmgr.Register("pip", func(runner executor.Runner, customPath string) (pkgmgr.PackageManager, error) {
		return NewWithPath(runner, customPath)
	})
}

// PipManager implements the PackageManager interface for pip
type PipManager struct {
	runner  executor.Runner
	pipPath string // Path to pip binary
}

// New creates a new PipManager that finds pip on PATH
func New(runner executor.Runner) (*PipManager, error) {
	return NewWithPath(runner, "")
}

// NewWithPath creates a new PipManager with a custom pip binary path
func NewWithPath(runner executor.Runner, customPath string) (*PipManager, error) {
	pipPath := customPath
	if pipPath == "" {
		path, err := runner.LookPath("pip")
		if err != nil {
			return nil, fmt.Errorf("pip not found in PATH: %w", err)
		}
		pipPath = path
	}
	return &PipManager{runner: runner, pipPath: pipPath}, nil
}

// Name returns the package manager name
func (p *PipManager) Name() string {
	return "pip"
}

// BinaryPath returns the path to the pip binary
func (p *PipManager) BinaryPath() string {
	return p.pipPath
}

// List returns installed packages via `pip list --format=json`
func (p *PipManager) List(ctx context.Context) ([]pkgmgr.Package, error) {
	res, err := p.runner.Run(ctx, executor.Command{
		Name: p.pipPath,
		Args: []string{"list", "--format=json", "--disable-pip-version-check"},
	})
	if err != nil {
		return nil, fmt.Errorf("pip list failed: %w", err)
	}

	var pkgs []pkgmgr.Package
	if err := json.Unmarshal([]byte(res.Stdout), &pkgs); err != nil {
		return nil, fmt.Errorf("failed to parse pip list output: %w", err)
	}
	return pkgs, nil
}

// Install installs the given specifiers. User scope adds --user; system and
// virtualenv scope install into the running interpreter.
func (p *PipManager) Install(ctx context.Context, opts pkgmgr.InstallOptions) error {
	if len(opts.Packages) == 0 {
		return fmt.Errorf("no packages specified")
	}

	scope := opts.Scope
	if scope == "" {
		scope = pkgmgr.DetectScope()
	}

	args := []string{"install", "--disable-pip-version-check"}
	if scope == pkgmgr.ScopeUser {
		args = append(args, "--user")
	}
	args = append(args, opts.Packages...)

	res, err := p.runner.Run(ctx, executor.Command{Name: p.pipPath, Args: args})
	writeOutput(opts.LogWriter, res)
	if err != nil {
		return fmt.Errorf("pip install %s failed: %w", strings.Join(opts.Packages, " "), err)
	}
	return nil
}

func writeOutput(w io.Writer, res executor.Result) {
	if w == nil {
		return
	}
	io.WriteString(w, res.Stdout)
	io.WriteString(w, res.Stderr)
}
