// Package updater inspects and updates the installed console: its git
// checkout, Python requirements and database schema.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Updater is the registry of updatable components. It is built once at
// startup and handed to whatever needs it.
type Updater struct {
	logger     *slog.Logger
	components map[string]Component
	order      []string
	now        func() time.Time
}

// New creates an updater over the given components. Names must be unique;
// a later component with a duplicate name replaces the earlier one.
func New(logger *slog.Logger, components ...Component) *Updater {
	u := &Updater{
		logger:     logger,
		components: make(map[string]Component, len(components)),
		now:        time.Now,
	}
	for _, c := range components {
		if _, exists := u.components[c.Name()]; !exists {
			u.order = append(u.order, c.Name())
		}
		u.components[c.Name()] = c
	}
	return u
}

// Names returns the registered component names in registration order
func (u *Updater) Names() []string {
	return append([]string(nil), u.order...)
}

// Component looks up a component by name
func (u *Updater) Component(name string) (Component, bool) {
	c, ok := u.components[name]
	return c, ok
}

// CheckUpdates refreshes every component and returns its status, keyed by name
func (u *Updater) CheckUpdates(ctx context.Context) map[string]Status {
	status := make(map[string]Status, len(u.order))
	for _, name := range u.order {
		c := u.components[name]
		c.Refresh(ctx)
		st := c.Status()
		st.CheckedAt = u.now()
		status[name] = st
	}
	return status
}

// Status returns every component's last status without refreshing
func (u *Updater) Status() map[string]Status {
	status := make(map[string]Status, len(u.order))
	for _, name := range u.order {
		status[name] = u.components[name].Status()
	}
	return status
}

// Update updates the named component, or every component that needs an
// update when name is empty. Results are keyed by component name.
func (u *Updater) Update(ctx context.Context, name string) (map[string]Result, error) {
	log := loggerFrom(ctx, u.logger)
	ret := make(map[string]Result)

	if name != "" {
		c, ok := u.components[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
		}
		log.Info("Starting update process..", "component", name)
		res, err := c.Update(ctx)
		ret[name] = res
		log.Info("Update process finished.", "component", name, "status", res.Status)
		return ret, err
	}

	log.Info("Starting update process..")
	var errs []error
	for _, n := range u.order {
		c := u.components[n]
		if !c.NeedsUpdate() {
			continue
		}
		res, err := c.Update(ctx)
		ret[n] = res
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
		}
	}
	log.Info("Update process finished.", "updated", len(ret))

	return ret, errors.Join(errs...)
}
