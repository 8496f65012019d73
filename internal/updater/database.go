package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// MigrationEngine is the schema migration tool behind a DBUpdater. Each
// call opens and releases its own database connection.
type MigrationEngine interface {
	// Versions returns the applied revision and the newest revision in the
	// migration set.
	Versions(ctx context.Context) (current, newest int64, err error)

	// Pending lists the revisions after current up to and including newest,
	// oldest first.
	Pending(ctx context.Context, current, newest int64) ([]int64, error)

	// Apply runs the upgrade of a single revision
	Apply(ctx context.Context, version int64) error

	// DowngradeTo runs downgrades until version is the applied revision
	DowngradeTo(ctx context.Context, version int64) error

	// Stamp records version as applied without running it
	Stamp(ctx context.Context, version int64) error
}

// DBUpdater tracks the database schema against the bundled migrations
type DBUpdater struct {
	engine MigrationEngine
	logger *slog.Logger

	mu      sync.RWMutex
	current Value[int64]
	newest  Value[int64]
}

// NewDBUpdater creates a database updater on top of engine
func NewDBUpdater(engine MigrationEngine, logger *slog.Logger) *DBUpdater {
	return &DBUpdater{engine: engine, logger: logger}
}

// Refresh reads the applied and newest revisions
func (d *DBUpdater) Refresh(ctx context.Context) {
	current, newest, err := d.engine.Versions(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		loggerFrom(ctx, d.logger).Warn("DBUpdater: could not read revisions", "error", err)
		d.current, d.newest = Unknown[int64](), Unknown[int64]()
		return
	}
	d.current, d.newest = Known(current), Known(newest)
}

// CurrentRevision returns the applied revision as of the last refresh
func (d *DBUpdater) CurrentRevision() Value[int64] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// NewestRevision returns the newest bundled revision as of the last refresh
func (d *DBUpdater) NewestRevision() Value[int64] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.newest
}

// NeedsUpdate reports whether the applied revision differs from the newest.
// Unknown revisions never need an update.
func (d *DBUpdater) NeedsUpdate() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current.Known && d.newest.Known && d.current.V != d.newest.V
}

// Update applies every pending revision oldest first. A revision failing
// because its tables already exist is stamped and skipped; any other
// failure stops the update.
func (d *DBUpdater) Update(ctx context.Context) bool {
	log := loggerFrom(ctx, d.logger)

	d.mu.RLock()
	current, newest := d.current, d.newest
	d.mu.RUnlock()

	if !current.Known || !newest.Known {
		log.Error("DBUpdater: failure - database revision is unknown")
		return false
	}
	if current.V == newest.V {
		return true
	}

	log.Info("DBUpdater: starting..", "current", current.V, "newest", newest.V)

	pending, err := d.engine.Pending(ctx, current.V, newest.V)
	if err != nil {
		log.Error("DBUpdater: failure", "error", err)
		return false
	}

	for _, rev := range pending {
		log.Info("Applying database revision", "revision", rev)
		err := d.engine.Apply(ctx, rev)
		if err == nil {
			d.setCurrent(rev)
			continue
		}
		if !strings.Contains(err.Error(), "already exists") {
			log.Error("DBUpdater: failure", "revision", rev, "error", err)
			return false
		}

		log.Info("Table already exists.. stamping to revision.", "revision", rev)
		if err := d.stamp(ctx, rev); err != nil {
			return false
		}
		d.setCurrent(rev)
	}

	log.Info("DBUpdater: success")
	return true
}

func (d *DBUpdater) setCurrent(rev int64) {
	d.mu.Lock()
	d.current = Known(rev)
	d.mu.Unlock()
}

// Downgrade migrates down to revision. Unlike Update, failure is returned.
func (d *DBUpdater) Downgrade(ctx context.Context, revision int64) error {
	if err := d.engine.DowngradeTo(ctx, revision); err != nil {
		loggerFrom(ctx, d.logger).Error("DBUpdater: failed to downgrade release", "revision", revision, "error", err)
		return fmt.Errorf("failed to downgrade database to revision %d: %w", revision, err)
	}
	d.setCurrent(revision)
	return nil
}

// Stamp marks revision as applied without running it
func (d *DBUpdater) Stamp(ctx context.Context, revision int64) error {
	if err := d.stamp(ctx, revision); err != nil {
		return err
	}
	d.setCurrent(revision)
	return nil
}

func (d *DBUpdater) stamp(ctx context.Context, revision int64) error {
	if err := d.engine.Stamp(ctx, revision); err != nil {
		loggerFrom(ctx, d.logger).Error("DBUpdater: stamp database - failure", "revision", revision, "error", err)
		return fmt.Errorf("failed to stamp database revision %d: %w", revision, err)
	}
	return nil
}
