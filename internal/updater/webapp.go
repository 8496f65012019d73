package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alarmdecoder/webconsole/internal/locale"
)

// WebappUpdater updates the web application as a unit: its source checkout
// and its database schema.
type WebappUpdater struct {
	name    string
	enabled bool
	source  *SourceUpdater
	db      *DBUpdater
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	lastSaga *Saga
}

// NewWebappUpdater composes a source and a database updater. A disabled
// webapp updater never refreshes and never updates.
func NewWebappUpdater(name string, enabled bool, source *SourceUpdater, db *DBUpdater, logger *slog.Logger) *WebappUpdater {
	return &WebappUpdater{
		name:    name,
		enabled: enabled,
		source:  source,
		db:      db,
		logger:  logger,
		now:     time.Now,
	}
}

// Name returns the component name
func (w *WebappUpdater) Name() string { return w.name }

// Source returns the source updater
func (w *WebappUpdater) Source() *SourceUpdater { return w.source }

// Database returns the database updater
func (w *WebappUpdater) Database() *DBUpdater { return w.db }

// Refresh refreshes the source, then the database
func (w *WebappUpdater) Refresh(ctx context.Context) {
	if !w.enabled {
		return
	}
	w.source.Refresh(ctx)
	w.db.Refresh(ctx)
}

// NeedsUpdate is true iff enabled and the source is behind its upstream
func (w *WebappUpdater) NeedsUpdate() bool {
	return w.enabled && w.source.NeedsUpdate()
}

// Status returns the combined source and database snapshot
func (w *WebappUpdater) Status() Status {
	if !w.enabled {
		st := Status{Name: w.name, DisabledReason: locale.Disabled}
		st.Status = englishStatus(st)
		return st
	}
	st := w.source.Status()
	st.Name = w.name
	st.NeedsUpdate = w.NeedsUpdate()
	st.DBRevision = w.db.CurrentRevision()
	st.DBNewest = w.db.NewestRevision()
	return st
}

// Version returns the describe string of the checkout
func (w *WebappUpdater) Version(ctx context.Context) string {
	return w.source.Version(ctx)
}

// LastSaga returns the record of the most recent update, or nil
func (w *WebappUpdater) LastSaga() *Saga {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastSaga == nil {
		return nil
	}
	cp := *w.lastSaga
	cp.Transitions = append([]Transition(nil), w.lastSaga.Transitions...)
	return &cp
}

// Update pulls the source and then migrates the database. If either stage
// fails the database is downgraded (when its migration was attempted) and
// the source is reset to the revisions captured beforehand. A failed
// downgrade is returned wrapped in ErrCompensationFailed.
func (w *WebappUpdater) Update(ctx context.Context) (Result, error) {
	log := loggerFrom(ctx, w.logger)
	log.Info("WebappUpdater: starting..")

	ret := Result{Status: StatusFail}
	if !w.enabled {
		log.Info("WebappUpdater: disabled")
		return ret, nil
	}

	saga := newSaga(w.source.LocalRevision(), w.db.CurrentRevision(), w.now)
	defer func() {
		w.mu.Lock()
		w.lastSaga = saga
		w.mu.Unlock()
	}()

	saga.to(SagaSourceUpdating)
	saga.SourceSucceeded = w.source.Update(ctx)

	if saga.SourceSucceeded {
		saga.to(SagaSourceDone)
		saga.to(SagaDBUpdating)
		w.db.Refresh(ctx)
		saga.DBAttempted = true
		saga.DBSucceeded = w.db.Update(ctx)
	}

	if saga.SourceSucceeded && saga.DBSucceeded {
		saga.to(SagaCommitted)
		log.Info("WebappUpdater: success")
		ret.Status = StatusPass
		ret.RestartRequired = true
		return ret, nil
	}

	log.Info("WebappUpdater: failed", "source", saga.SourceSucceeded, "database", saga.DBSucceeded)
	saga.to(SagaRollingBack)

	var compErr error
	if saga.DBAttempted && !saga.DBSucceeded {
		if rev, ok := saga.DBSnapshot.Get(); ok {
			compErr = w.db.Downgrade(ctx, rev)
		} else {
			compErr = errors.New("database revision before the update is unknown")
			log.Error("WebappUpdater: cannot downgrade database", "error", compErr)
		}
	}

	if rev, ok := saga.SourceSnapshot.Get(); ok {
		w.source.Reset(ctx, rev)
	} else {
		log.Error("WebappUpdater: cannot reset source, revision before the update is unknown")
	}

	if compErr != nil {
		saga.CompensationErr = compErr.Error()
		saga.to(SagaFailed)
		return ret, fmt.Errorf("%w: %w", ErrCompensationFailed, compErr)
	}

	saga.to(SagaRolledBack)
	return ret, nil
}
