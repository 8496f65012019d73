package server

import (
	"context"
	"database/sql"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/executor"
	"github.com/alarmdecoder/webconsole/internal/pkgmgr"
	"github.com/alarmdecoder/webconsole/internal/updater"

	// Register package managers
	_ "github.com/alarmdecoder/webconsole/internal/pkgmgr/pip"
	_ "github.com/alarmdecoder/webconsole/internal/pkgmgr/uv"
)

// WebappComponent is the registry name of the console itself
const WebappComponent = "webapp"

// Components is the update core built from configuration
type Components struct {
	Updater *updater.Updater
	Webapp  *updater.WebappUpdater
	DB      *updater.DBUpdater
	Engine  *db.GooseEngine
}

// BuildUpdater assembles the update core: requirements, source and database
// updaters composed into the webapp component.
func BuildUpdater(cfg *config.Config, runner executor.Runner, logger *slog.Logger) (*Components, error) {
	if runner == nil {
		runner = executor.NewLocalRunner()
	}
	ucfg := cfg.Updater

	var requirements *updater.RequirementsUpdater
	if ucfg.RequirementsFile != "" {
		manager, err := pkgmgr.NewWithPath(ucfg.PackageManager, runner, ucfg.PackageManagerPath)
		if err != nil {
			// the source can still be updated without dependency installs
			logger.Warn("Package manager unavailable, requirements will not be installed",
				"package_manager", ucfg.PackageManager, "error", err)
		} else {
			path := resolve(ucfg.SourceDir, ucfg.RequirementsFile)
			requirements = updater.NewRequirementsUpdater(path, manager, pkgmgr.DetectScope(), logger)
		}
	}

	source := updater.NewSourceUpdater(WebappComponent, runner, updater.SourceOptions{
		Dir:          ucfg.SourceDir,
		Remote:       ucfg.Remote,
		FetchTimeout: ucfg.FetchTimeout,
	}, requirements, logger)

	engine, err := MigrationEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	dbUpdater := updater.NewDBUpdater(engine, logger)

	webapp := updater.NewWebappUpdater(WebappComponent, ucfg.Enabled, source, dbUpdater, logger)

	return &Components{
		Updater: updater.New(logger, webapp),
		Webapp:  webapp,
		DB:      dbUpdater,
		Engine:  engine,
	}, nil
}

// MigrationEngine returns a goose engine over the checkout's migrations
// directory, or over the bundled migrations when the checkout has none.
func MigrationEngine(cfg *config.Config, logger *slog.Logger) (*db.GooseEngine, error) {
	dialect, err := db.GooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	var fsys fs.FS = db.Migrations()
	dir := db.MigrationsDir
	if cfg.Updater.MigrationsDir != "" {
		path := resolve(cfg.Updater.SourceDir, cfg.Updater.MigrationsDir)
		// read from disk so a pull that adds migrations is seen without a rebuild
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			fsys, dir = os.DirFS(path), "."
		} else {
			logger.Warn("Migrations directory not found in checkout, using bundled migrations",
				"path", path)
		}
	}

	dbCfg := cfg.Database
	open := func(ctx context.Context) (*sql.DB, error) {
		return db.OpenSQL(dbCfg)
	}
	return db.NewGooseEngine(fsys, dir, dialect, open, logger), nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
