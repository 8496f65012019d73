// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alarmdecoder/webconsole/internal/api"
	"github.com/alarmdecoder/webconsole/internal/api/handlers"
	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/logger"
	"github.com/alarmdecoder/webconsole/internal/logstream"
	"github.com/alarmdecoder/webconsole/internal/queue"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/alarmdecoder/webconsole/internal/scheduler"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/alarmdecoder/webconsole/internal/worker"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	ConfigFile string // Explicit config file (empty = default locations)
	Port       int    // Port to run the server on (0 = use config default)
	Version    string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	log := logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	log.Info("Starting web console", "version", handlers.Version, "mode", appCfg.Server.Mode)

	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info("Database initialized", "driver", appCfg.Database.Driver)

	core, err := BuildUpdater(appCfg, nil, log)
	if err != nil {
		return fmt.Errorf("failed to initialize updater: %w", err)
	}

	if appCfg.Database.AutoMigrate {
		sqlDB, err := database.DB()
		if err != nil {
			return fmt.Errorf("failed to get database handle: %w", err)
		}
		if err := core.Engine.Up(sqlDB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Database migrations completed")
	}

	serverID, err := db.GetOrCreateServerID(database)
	if err != nil {
		return fmt.Errorf("failed to initialize server ID: %w", err)
	}
	log.Info("Server ID initialized", "server_id", serverID)

	enforcer, err := rbac.NewEnforcer(database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	if err := db.CreateDefaultAdmin(database, enforcer); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	jobQueue, err := createQueue(appCfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize job queue: %w", err)
	}
	defer jobQueue.Close()
	log.Info("Job queue initialized", "type", appCfg.Queue.Type)

	var valkeyClient valkey.Client
	if vq, ok := jobQueue.(*queue.ValkeyQueue); ok {
		valkeyClient = vq.GetClient()
	}

	updates := service.NewUpdateService(database, core.Updater, jobQueue, log)

	// one job at a time: updates and checks share the git checkout
	w := worker.New(database, jobQueue, updates, logstream.NewBroker(), log, valkeyClient, 1)
	if err := w.RecoverInterrupted(ctx); err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if appCfg.Updater.AutoCheck {
		last, known, err := db.GetLastUpdateCheck(database)
		if err != nil {
			log.Warn("Failed to read last update check", "error", err)
		}
		immediate := scheduler.DueNow(last, known, appCfg.Updater.CheckInterval, time.Now())
		sched, err = scheduler.New(updates, appCfg.Updater.CheckInterval, immediate, log)
		if err != nil {
			return err
		}
	}

	settings := service.NewSettingsService(database)
	router := api.NewRouter(appCfg, api.Deps{
		DB:       database,
		Enforcer: enforcer,
		Updates:  updates,
		Keypad:   service.NewKeypadService(database),
		Zones:    service.NewZoneService(database),
		Settings: settings,
		Setup:    service.NewSetupService(database, enforcer, settings),
		Broker:   w.GetBroker(),
		Describe: core.Webapp.Version,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if sched != nil {
		sched.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		if sched != nil {
			if err := sched.Shutdown(); err != nil {
				log.Warn("Scheduler shutdown failed", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info("Server stopped")
		return nil
	})

	err = g.Wait()
	log.Info("Web console exited")
	return err
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, cfg)
}

// createQueue creates a queue based on configuration.
func createQueue(cfg *config.Config, database *gorm.DB) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "memory":
		return queue.NewMemoryQueue(100), nil
	case "valkey":
		if cfg.Queue.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when queue type is valkey")
		}
		return queue.NewValkeyQueue(cfg.Queue.ValkeyAddr, database)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: memory, valkey)", cfg.Queue.Type)
	}
}
