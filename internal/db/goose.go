package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its filesystem, dialect and logger in package globals
var gooseMu sync.Mutex

// Opener opens a connection for a single migration operation. The engine
// closes it when the operation finishes.
type Opener func(ctx context.Context) (*sql.DB, error)

// GooseEngine runs goose migrations from fsys/dir against the database
// returned by its Opener.
type GooseEngine struct {
	fsys    fs.FS
	dir     string
	dialect string
	open    Opener
	logger  *slog.Logger
}

// NewGooseEngine creates an engine. dialect is a goose dialect name, see
// GooseDialect. open may be nil when only Up is used.
func NewGooseEngine(fsys fs.FS, dir, dialect string, open Opener, logger *slog.Logger) *GooseEngine {
	return &GooseEngine{fsys: fsys, dir: dir, dialect: dialect, open: open, logger: logger}
}

// GooseDialect maps a database driver name to the goose dialect
func GooseDialect(driver string) (string, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func (e *GooseEngine) locked(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(e.fsys)
	goose.SetLogger(gooseLogger{e.logger})
	if err := goose.SetDialect(e.dialect); err != nil {
		return err
	}
	return fn()
}

func (e *GooseEngine) withDB(ctx context.Context, fn func(*sql.DB) error) error {
	if e.open == nil {
		return errors.New("migration engine has no database opener")
	}
	db, err := e.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return e.locked(func() error { return fn(db) })
}

// Up applies every pending migration on db
func (e *GooseEngine) Up(db *sql.DB) error {
	return e.locked(func() error {
		return goose.Up(db, e.dir)
	})
}

// Versions returns the applied revision and the newest bundled revision
func (e *GooseEngine) Versions(ctx context.Context) (current, newest int64, err error) {
	err = e.withDB(ctx, func(db *sql.DB) error {
		current, err = goose.GetDBVersion(db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		migrations, err := goose.CollectMigrations(e.dir, 0, math.MaxInt64)
		if err != nil {
			return fmt.Errorf("failed to collect migrations: %w", err)
		}
		if len(migrations) > 0 {
			newest = migrations[len(migrations)-1].Version
		}
		return nil
	})
	return current, newest, err
}

// Pending lists the revisions in (current, newest], oldest first
func (e *GooseEngine) Pending(_ context.Context, current, newest int64) ([]int64, error) {
	var versions []int64
	err := e.locked(func() error {
		migrations, err := goose.CollectMigrations(e.dir, current, newest)
		if err != nil {
			return fmt.Errorf("failed to collect migrations: %w", err)
		}
		for _, m := range migrations {
			versions = append(versions, m.Version)
		}
		return nil
	})
	return versions, err
}

// Apply runs the upgrade of a single revision
func (e *GooseEngine) Apply(ctx context.Context, version int64) error {
	return e.withDB(ctx, func(db *sql.DB) error {
		migrations, err := goose.CollectMigrations(e.dir, version-1, version)
		if err != nil {
			return fmt.Errorf("failed to collect migrations: %w", err)
		}
		for _, m := range migrations {
			if m.Version == version {
				return m.Up(db)
			}
		}
		return fmt.Errorf("migration %d not found", version)
	})
}

// DowngradeTo rolls back migrations until version is the applied revision
func (e *GooseEngine) DowngradeTo(ctx context.Context, version int64) error {
	return e.withDB(ctx, func(db *sql.DB) error {
		return goose.DownTo(db, e.dir, version)
	})
}

// Stamp records version as applied without running it
func (e *GooseEngine) Stamp(ctx context.Context, version int64) error {
	return e.withDB(ctx, func(db *sql.DB) error {
		// creates the version table when missing
		if _, err := goose.GetDBVersion(db); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		query := "INSERT INTO %s (version_id, is_applied) VALUES (?, ?)"
		if e.dialect == "postgres" {
			query = "INSERT INTO %s (version_id, is_applied) VALUES ($1, $2)"
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(query, goose.TableName()), version, true); err != nil {
			return fmt.Errorf("failed to stamp version %d: %w", version, err)
		}
		return nil
	})
}

type gooseLogger struct {
	l *slog.Logger
}

func (g gooseLogger) Fatal(v ...interface{}) {
	g.l.Error(strings.TrimSpace(fmt.Sprint(v...)))
	os.Exit(1)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func (g gooseLogger) Print(v ...interface{}) {
	g.l.Info(strings.TrimSpace(fmt.Sprint(v...)))
}

func (g gooseLogger) Println(v ...interface{}) {
	g.l.Info(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
