package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/server"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and apply updates",
	Long: `Run the updater in this process, bypassing the job queue.

Stop the server before applying an update; the update may require a restart.`,
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Refresh and print the status of every component",
	Args:  cobra.NoArgs,
	RunE:  runUpdateCheck,
}

var updateApplyCmd = &cobra.Command{
	Use:   "apply [component]",
	Short: "Update a component, or every component that needs it",
	Example: `  webconsole update apply          # everything that is behind
  webconsole update apply webapp   # just the console`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdateApply,
}

func init() {
	for _, c := range []*cobra.Command{updateCheckCmd, updateApplyCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
		updateCmd.AddCommand(c)
	}
}

func runUpdateCheck(cmd *cobra.Command, args []string) error {
	if err := validateFormat(outputFormat); err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	core, err := server.BuildUpdater(cfg, nil, log)
	if err != nil {
		return err
	}

	status := core.Updater.CheckUpdates(cmd.Context())
	recordCheck(cfg.Database, log)
	return printStatus(cmd.OutOrStdout(), outputFormat, status)
}

func runUpdateApply(cmd *cobra.Command, args []string) error {
	if err := validateFormat(outputFormat); err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	core, err := server.BuildUpdater(cfg, nil, log)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}

	ctx := cmd.Context()
	core.Updater.CheckUpdates(ctx)
	recordCheck(cfg.Database, log)

	results, err := core.Updater.Update(ctx, name)
	if err != nil && !errors.Is(err, updater.ErrCompensationFailed) {
		return err
	}
	if perr := printResults(cmd.OutOrStdout(), outputFormat, results); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	for component, r := range results {
		if !r.Passed() {
			return fmt.Errorf("update of %s failed", component)
		}
	}
	return nil
}

// recordCheck stores the check time so the server's scheduler does not
// repeat it right away. Failure is not fatal for a CLI check.
func recordCheck(cfg config.DatabaseConfig, log *slog.Logger) {
	gdb, err := db.New(cfg)
	if err != nil {
		log.Warn("Could not record update check", "error", err)
		return
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.SetLastUpdateCheck(gdb, time.Now()); err != nil {
		log.Warn("Could not record update check", "error", err)
	}
}
