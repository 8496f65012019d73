package updater

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alarmdecoder/webconsole/internal/executor"
	"github.com/alarmdecoder/webconsole/internal/locale"
)

// DefaultFetchTimeout bounds `git fetch` so an unreachable remote or a
// credential prompt cannot block a refresh.
const DefaultFetchTimeout = 30 * time.Second

// SourceOptions configures a SourceUpdater
type SourceOptions struct {
	Dir          string        // git checkout; empty means the working directory
	Remote       string        // remote name, "origin" by default
	FetchTimeout time.Duration // zero means DefaultFetchTimeout
}

// SourceUpdater tracks a git checkout against its upstream branch
type SourceUpdater struct {
	name         string
	runner       executor.Runner
	dir          string
	remote       string
	fetchTimeout time.Duration
	requirements *RequirementsUpdater
	logger       *slog.Logger

	mu             sync.RWMutex
	enabled        bool
	disabledReason string
	branch         Value[string]
	localRevision  Value[string]
	remoteRevision Value[string]
	commitsBehind  Value[int]
	commitsAhead   Value[int]
}

// NewSourceUpdater creates a source updater. requirements may be nil when
// the checkout declares no dependencies.
func NewSourceUpdater(name string, runner executor.Runner, opts SourceOptions, requirements *RequirementsUpdater, logger *slog.Logger) *SourceUpdater {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &SourceUpdater{
		name:           name,
		runner:         runner,
		dir:            opts.Dir,
		remote:         opts.Remote,
		fetchTimeout:   opts.FetchTimeout,
		requirements:   requirements,
		logger:         logger,
		disabledReason: locale.Disabled,
	}
}

// Name returns the component name
func (s *SourceUpdater) Name() string { return s.name }

// Requirements returns the nested requirements updater, or nil
func (s *SourceUpdater) Requirements() *RequirementsUpdater { return s.requirements }

func (s *SourceUpdater) git(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	res, err := s.runner.Run(ctx, executor.Command{
		Name:    "git",
		Args:    args,
		Dir:     s.dir,
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
		Timeout: timeout,
	})
	return strings.TrimSpace(res.Stdout), err
}

// checkEnabled reports whether git is usable here and the remote is not an
// SSH-style URL, which could block on a key passphrase.
func (s *SourceUpdater) checkEnabled(ctx context.Context) (bool, string) {
	if _, err := s.runner.LookPath("git"); err != nil {
		return false, locale.GitUnavailable
	}

	out, err := s.git(ctx, 0, "remote", "-v")
	if err != nil {
		loggerFrom(ctx, s.logger).Debug("git remote failed", "dir", s.dir, "error", err)
		return false, locale.NotCheckout
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] == s.remote && strings.Contains(fields[1], "@") {
			return false, locale.SSHOrigin
		}
	}
	return true, ""
}

// Refresh re-evaluates enablement and, when enabled, fetches the remote and
// re-reads branch, revisions and ahead/behind counts. Each read that fails
// leaves its value unknown; nothing is returned to the caller.
func (s *SourceUpdater) Refresh(ctx context.Context) {
	log := loggerFrom(ctx, s.logger)
	enabled, reason := s.checkEnabled(ctx)

	if !enabled {
		s.mu.Lock()
		s.enabled, s.disabledReason = false, reason
		s.branch, s.localRevision, s.remoteRevision = Unknown[string](), Unknown[string](), Unknown[string]()
		s.commitsBehind, s.commitsAhead = Unknown[int](), Unknown[int]()
		s.mu.Unlock()
		log.Info("SourceUpdater: disabled", "component", s.name, "reason", reason)
		return
	}

	if _, err := s.git(ctx, s.fetchTimeout, "fetch", s.remote); err != nil {
		log.Warn("SourceUpdater: fetch failed", "component", s.name, "remote", s.remote, "error", err)
	}

	branch := Unknown[string]()
	if out, err := s.git(ctx, 0, "symbolic-ref", "-q", "HEAD"); err == nil && out != "" {
		branch = Known(strings.TrimPrefix(out, "refs/heads/"))
	}

	local := Unknown[string]()
	if out, err := s.git(ctx, 0, "rev-parse", "HEAD"); err == nil && out != "" {
		local = Known(out)
	}

	remote := Unknown[string]()
	if out, err := s.git(ctx, 0, "rev-parse", "--verify", "--quiet", "@{upstream}"); err == nil && out != "" {
		remote = Known(out)
	}

	behind, ahead := Unknown[int](), Unknown[int]()
	if out, err := s.git(ctx, 0, "rev-list", "--left-right", "@{upstream}...HEAD"); err == nil {
		behind = Known(strings.Count(out, "<"))
		ahead = Known(strings.Count(out, ">"))
	} else {
		log.Debug("SourceUpdater: could not compare with upstream", "component", s.name, "error", err)
	}

	s.mu.Lock()
	s.enabled, s.disabledReason = true, ""
	s.branch, s.localRevision, s.remoteRevision = branch, local, remote
	s.commitsBehind, s.commitsAhead = behind, ahead
	s.mu.Unlock()

	if s.requirements != nil {
		s.requirements.Refresh(ctx)
	}
}

// Enabled reports the enablement decided by the last refresh
func (s *SourceUpdater) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// NeedsUpdate is true iff enabled and the behind count is known and positive
func (s *SourceUpdater) NeedsUpdate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled && s.commitsBehind.Known && s.commitsBehind.V > 0
}

// Branch returns the checked out branch
func (s *SourceUpdater) Branch() Value[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branch
}

// LocalRevision returns HEAD as of the last refresh
func (s *SourceUpdater) LocalRevision() Value[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localRevision
}

// RemoteRevision returns the upstream revision, unknown when there is none
func (s *SourceUpdater) RemoteRevision() Value[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteRevision
}

// CommitCount returns the behind and ahead counts
func (s *SourceUpdater) CommitCount() (behind, ahead Value[int]) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commitsBehind, s.commitsAhead
}

// Status returns the snapshot of the last refresh
func (s *SourceUpdater) Status() Status {
	s.mu.RLock()
	st := Status{
		Name:           s.name,
		Enabled:        s.enabled,
		DisabledReason: s.disabledReason,
		NeedsUpdate:    s.enabled && s.commitsBehind.Known && s.commitsBehind.V > 0,
		Branch:         s.branch,
		LocalRevision:  s.localRevision,
		RemoteRevision: s.remoteRevision,
		CommitsBehind:  s.commitsBehind,
		CommitsAhead:   s.commitsAhead,
	}
	s.mu.RUnlock()

	if s.requirements != nil {
		st.Requirements = s.requirements.Needed()
	}
	st.Status = englishStatus(st)
	return st
}

// Update merges the remote tracking branch and then installs any missing
// requirements. Failures are logged and reported as false.
func (s *SourceUpdater) Update(ctx context.Context) bool {
	log := loggerFrom(ctx, s.logger)
	log.Info("SourceUpdater: starting..", "component", s.name)

	s.mu.RLock()
	enabled, branch := s.enabled, s.branch
	s.mu.RUnlock()

	if !enabled {
		log.Info("SourceUpdater: disabled", "component", s.name)
		return false
	}
	if !branch.Known {
		log.Error("SourceUpdater: failed - current branch is unknown", "component", s.name)
		return false
	}

	gitSucceeded, requirementsSucceeded := false, false
	if _, err := s.git(ctx, 0, "merge", s.remote+"/"+branch.V); err != nil {
		log.Error("SourceUpdater: merge failed", "component", s.name, "branch", branch.V, "error", err)
	} else {
		gitSucceeded = true
		requirementsSucceeded = true
		if s.requirements != nil {
			// the merge may have changed the declared requirements
			s.requirements.Refresh(ctx)
			requirementsSucceeded = s.requirements.Update(ctx)
		}
	}

	if !gitSucceeded || !requirementsSucceeded {
		log.Info("SourceUpdater: failed", "component", s.name, "git", gitSucceeded, "requirements", requirementsSucceeded)
		return false
	}

	log.Info("SourceUpdater: success", "component", s.name)
	return true
}

// Reset hard-resets the checkout to revision. Failure is logged only.
func (s *SourceUpdater) Reset(ctx context.Context, revision string) {
	log := loggerFrom(ctx, s.logger)
	if revision == "" {
		log.Warn("SourceUpdater: reset skipped, no revision", "component", s.name)
		return
	}
	if _, err := s.git(ctx, 0, "reset", "--hard", revision); err != nil {
		log.Error("SourceUpdater: reset failed", "component", s.name, "revision", revision, "error", err)
		return
	}
	log.Info("SourceUpdater: reset", "component", s.name, "revision", revision)
}

// Version returns `git describe --tags --always --long`, empty on failure
func (s *SourceUpdater) Version(ctx context.Context) string {
	out, err := s.git(ctx, 0, "describe", "--tags", "--always", "--long")
	if err != nil {
		return ""
	}
	return out
}
