package pkgmgr

import (
	"context"
	"io"
	"os"
)

// PackageManager is the interface that all Python package managers must implement
type PackageManager interface {
	// Name returns the package manager name (e.g., "pip", "uv")
	Name() string

	// List returns the installed packages
	List(ctx context.Context) ([]Package, error)

	// Install installs packages given as requirement specifiers
	Install(ctx context.Context, opts InstallOptions) error
}

// Scope selects where packages are installed
type Scope string

const (
	ScopeUser        Scope = "user"        // per-user site-packages (pip --user)
	ScopeSystem      Scope = "system"      // interpreter-wide site-packages
	ScopeEnvironment Scope = "environment" // the active virtualenv
)

// InstallOptions contains parameters for installing packages
type InstallOptions struct {
	Packages  []string  // Requirement specifiers (e.g., "jinja2>=3.0")
	Scope     Scope     // Install scope; empty means DetectScope()
	LogWriter io.Writer // Optional writer for streaming command output
}

// Package represents an installed package
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DetectScope picks the install scope for this process: the active
// virtualenv when VIRTUAL_ENV is set, system when running as root,
// otherwise the user's site-packages.
func DetectScope() Scope {
	if os.Getenv("VIRTUAL_ENV") != "" {
		return ScopeEnvironment
	}
	if os.Geteuid() == 0 {
		return ScopeSystem
	}
	return ScopeUser
}

// Index maps normalized package names to installed versions
func Index(pkgs []Package) map[string]string {
	idx := make(map[string]string, len(pkgs))
	for _, p := range pkgs {
		idx[NormalizeName(p.Name)] = p.Version
	}
	return idx
}
