package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/server"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and change the schema revision",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied and newest schema revision",
	Args:  cobra.NoArgs,
	RunE:  runDBStatus,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE:  runDBUpgrade,
}

var dbDowngradeCmd = &cobra.Command{
	Use:   "downgrade <revision>",
	Short: "Roll the schema back to a revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBDowngrade,
}

var dbStampCmd = &cobra.Command{
	Use:   "stamp <revision>",
	Short: "Record a revision as applied without running it",
	Long: `Record a revision as applied without running it.

Use this when the schema change already exists, for example after
restoring a backup taken on a newer version.`,
	Args: cobra.ExactArgs(1),
	RunE: runDBStamp,
}

func init() {
	dbStatusCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")

	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbUpgradeCmd)
	dbCmd.AddCommand(dbDowngradeCmd)
	dbCmd.AddCommand(dbStampCmd)
}

type dbStatus struct {
	Current int64   `json:"current" yaml:"current"`
	Newest  int64   `json:"newest" yaml:"newest"`
	Pending []int64 `json:"pending" yaml:"pending"`
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	if err := validateFormat(outputFormat); err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine, err := server.MigrationEngine(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	current, newest, err := engine.Versions(ctx)
	if err != nil {
		return err
	}
	pending, err := engine.Pending(ctx, current, newest)
	if err != nil {
		return err
	}

	st := dbStatus{Current: current, Newest: newest, Pending: pending}
	return render(cmd.OutOrStdout(), outputFormat, st, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Current revision:\t%d\n", st.Current)
		fmt.Fprintf(tw, "Newest revision:\t%d\n", st.Newest)
		fmt.Fprintf(tw, "Pending:\t%d\n", len(st.Pending))
	})
}

func runDBUpgrade(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine, err := server.MigrationEngine(cfg, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.OpenSQL(cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := engine.Up(sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
	return nil
}

func runDBDowngrade(cmd *cobra.Command, args []string) error {
	revision, err := parseRevision(args[0])
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine, err := server.MigrationEngine(cfg, log)
	if err != nil {
		return err
	}
	dbUpdater := updater.NewDBUpdater(engine, log)
	if err := dbUpdater.Downgrade(cmd.Context(), revision); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Downgraded to revision %d\n", revision)
	return nil
}

func runDBStamp(cmd *cobra.Command, args []string) error {
	revision, err := parseRevision(args[0])
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine, err := server.MigrationEngine(cfg, log)
	if err != nil {
		return err
	}
	dbUpdater := updater.NewDBUpdater(engine, log)
	if err := dbUpdater.Stamp(cmd.Context(), revision); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stamped revision %d\n", revision)
	return nil
}

func parseRevision(s string) (int64, error) {
	revision, err := strconv.ParseInt(s, 10, 64)
	if err != nil || revision < 0 {
		return 0, fmt.Errorf("invalid revision %q", s)
	}
	return revision, nil
}
