package updater

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/alarmdecoder/webconsole/internal/pkgmgr"
)

// RequirementsUpdater compares declared dependencies against installed
// packages and installs the ones that are missing or out of range.
type RequirementsUpdater struct {
	path    string
	manager pkgmgr.PackageManager
	scope   pkgmgr.Scope
	logger  *slog.Logger

	mu           sync.RWMutex
	requirements []pkgmgr.Requirement
	needed       []pkgmgr.Requirement
	installed    Value[int]
	attempts     []string
}

// NewRequirementsUpdater creates a requirements updater for the file at
// path. manager may be nil when no package manager is installed, in which
// case nothing is ever reported as needed. An empty scope means
// pkgmgr.DetectScope() at install time.
func NewRequirementsUpdater(path string, manager pkgmgr.PackageManager, scope pkgmgr.Scope, logger *slog.Logger) *RequirementsUpdater {
	return &RequirementsUpdater{
		path:    path,
		manager: manager,
		scope:   scope,
		logger:  logger,
	}
}

// Path returns the requirements file path
func (r *RequirementsUpdater) Path() string { return r.path }

// Refresh re-reads the requirements file and the installed package list.
// A missing file means nothing is declared.
func (r *RequirementsUpdater) Refresh(ctx context.Context) {
	log := loggerFrom(ctx, r.logger)

	reqs, err := pkgmgr.LoadRequirements(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("RequirementsUpdater: could not read requirements", "path", r.path, "error", err)
		}
		r.set(nil, nil, Unknown[int]())
		return
	}

	if r.manager == nil {
		log.Warn("RequirementsUpdater: no package manager available", "path", r.path)
		r.set(reqs, nil, Unknown[int]())
		return
	}

	pkgs, err := r.manager.List(ctx)
	if err != nil {
		log.Warn("RequirementsUpdater: could not list installed packages", "manager", r.manager.Name(), "error", err)
		r.set(reqs, nil, Unknown[int]())
		return
	}

	installed := pkgmgr.Index(pkgs)
	var needed []pkgmgr.Requirement
	for _, req := range reqs {
		version, ok := installed[req.Name]
		if !ok || !req.SatisfiedBy(version) {
			needed = append(needed, req)
		}
	}
	r.set(reqs, needed, Known(len(pkgs)))
}

func (r *RequirementsUpdater) set(reqs, needed []pkgmgr.Requirement, installed Value[int]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requirements = reqs
	r.needed = needed
	r.installed = installed
}

// NeedsUpdate reports whether any declared requirement is unsatisfied
func (r *RequirementsUpdater) NeedsUpdate() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.needed) > 0
}

// Requirements returns every declared specifier in file order
func (r *RequirementsUpdater) Requirements() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return specifiers(r.requirements)
}

// Needed returns the unsatisfied specifiers in file order
func (r *RequirementsUpdater) Needed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return specifiers(r.needed)
}

// Installed returns the number of installed packages seen by the last refresh
func (r *RequirementsUpdater) Installed() Value[int] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.installed
}

// Attempts returns the specifiers the last Update tried to install, in order
func (r *RequirementsUpdater) Attempts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.attempts...)
}

// Update installs each needed requirement one at a time, stopping at the
// first failure. Nothing already installed is rolled back.
func (r *RequirementsUpdater) Update(ctx context.Context) bool {
	log := loggerFrom(ctx, r.logger)
	log.Info("RequirementsUpdater: starting")

	r.mu.Lock()
	needed := append([]pkgmgr.Requirement(nil), r.needed...)
	r.attempts = nil
	r.mu.Unlock()

	if len(needed) > 0 && r.manager == nil {
		log.Error("RequirementsUpdater: failure - no package manager available")
		return false
	}

	for i, req := range needed {
		r.mu.Lock()
		r.attempts = append(r.attempts, req.Specifier)
		r.mu.Unlock()

		log.Info("RequirementsUpdater: installing", "requirement", req.Specifier)
		err := r.manager.Install(ctx, pkgmgr.InstallOptions{
			Packages: []string{req.Specifier},
			Scope:    r.scope,
		})
		if err != nil {
			log.Error("RequirementsUpdater: failure", "requirement", req.Specifier, "error", err)
			r.mu.Lock()
			r.needed = needed[i:]
			r.mu.Unlock()
			return false
		}
	}

	r.mu.Lock()
	r.needed = nil
	r.mu.Unlock()

	log.Info("RequirementsUpdater: success")
	return true
}

func specifiers(reqs []pkgmgr.Requirement) []string {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]string, len(reqs))
	for i, req := range reqs {
		out[i] = req.Specifier
	}
	return out
}
