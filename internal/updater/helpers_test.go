package updater

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/alarmdecoder/webconsole/internal/executor/executortest"
	"github.com/alarmdecoder/webconsole/internal/pkgmgr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const httpsRemote = "origin\thttps://github.com/nutechsoftware/alarmdecoder-webapp.git (fetch)\n" +
	"origin\thttps://github.com/nutechsoftware/alarmdecoder-webapp.git (push)\n"

// scriptCheckout scripts the git reads of a healthy checkout on master with
// the given behind/ahead counts.
func scriptCheckout(r *executortest.Runner, remotes string, behind, ahead int) *executortest.Runner {
	var revs []string
	for i := 0; i < behind; i++ {
		revs = append(revs, fmt.Sprintf("<%040d", i))
	}
	for i := 0; i < ahead; i++ {
		revs = append(revs, fmt.Sprintf(">%040d", 100+i))
	}
	return r.
		OnOutput("git remote -v", remotes).
		OnOutput("git fetch origin", "").
		OnOutput("git symbolic-ref -q HEAD", "refs/heads/master\n").
		OnOutput("git rev-parse HEAD", "aaaa\n").
		OnOutput("git rev-parse --verify --quiet @{upstream}", "bbbb\n").
		OnOutput("git rev-list --left-right @{upstream}...HEAD", strings.Join(revs, "\n"))
}

func newSource(r *executortest.Runner, reqs *RequirementsUpdater) *SourceUpdater {
	return NewSourceUpdater("webapp", r, SourceOptions{}, reqs, discardLogger())
}

type fakeManager struct {
	mu        sync.Mutex
	installed []pkgmgr.Package
	listErr   error
	failOn    map[string]error
	installs  []string
}

func (f *fakeManager) Name() string { return "fake" }

func (f *fakeManager) List(ctx context.Context) ([]pkgmgr.Package, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.installed, nil
}

func (f *fakeManager) Install(ctx context.Context, opts pkgmgr.InstallOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range opts.Packages {
		f.installs = append(f.installs, p)
		if err := f.failOn[p]; err != nil {
			return err
		}
	}
	return nil
}

type fakeEngine struct {
	current, newest int64
	versionsErr     error
	applyErr        map[int64]error
	downgradeErr    error
	stampErr        error
	calls           []string
}

func (f *fakeEngine) Versions(ctx context.Context) (int64, int64, error) {
	f.calls = append(f.calls, "versions")
	if f.versionsErr != nil {
		return 0, 0, f.versionsErr
	}
	return f.current, f.newest, nil
}

func (f *fakeEngine) Pending(ctx context.Context, current, newest int64) ([]int64, error) {
	f.calls = append(f.calls, "pending")
	var out []int64
	for v := current + 1; v <= newest; v++ {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEngine) Apply(ctx context.Context, version int64) error {
	f.calls = append(f.calls, fmt.Sprintf("apply %d", version))
	if err := f.applyErr[version]; err != nil {
		return err
	}
	f.current = version
	return nil
}

func (f *fakeEngine) DowngradeTo(ctx context.Context, version int64) error {
	f.calls = append(f.calls, fmt.Sprintf("downgrade %d", version))
	if f.downgradeErr != nil {
		return f.downgradeErr
	}
	f.current = version
	return nil
}

func (f *fakeEngine) Stamp(ctx context.Context, version int64) error {
	f.calls = append(f.calls, fmt.Sprintf("stamp %d", version))
	if f.stampErr != nil {
		return f.stampErr
	}
	f.current = version
	return nil
}

// migrationCalls returns the engine calls that change the schema
func (f *fakeEngine) migrationCalls() []string {
	var out []string
	for _, c := range f.calls {
		if c != "versions" && c != "pending" {
			out = append(out, c)
		}
	}
	return out
}
