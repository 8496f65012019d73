package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/logger"
	"github.com/alarmdecoder/webconsole/internal/updater"
	"gopkg.in/yaml.v3"
)

// outputFormat is shared by every command that prints structured data
var outputFormat string

func validateFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls table for the default format
func render(w io.Writer, format string, v interface{}, table func(w *tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// statusRow is the CLI view of a component status
type statusRow struct {
	Name           string   `json:"name" yaml:"name"`
	NeedsUpdate    bool     `json:"needs_update" yaml:"needs_update"`
	Branch         string   `json:"branch" yaml:"branch"`
	LocalRevision  string   `json:"local_revision" yaml:"local_revision"`
	RemoteRevision string   `json:"remote_revision" yaml:"remote_revision"`
	DBRevision     *int64   `json:"db_revision" yaml:"db_revision"`
	DBNewest       *int64   `json:"db_newest_revision" yaml:"db_newest_revision"`
	Requirements   []string `json:"requirements_needed,omitempty" yaml:"requirements_needed,omitempty"`
	Status         string   `json:"status" yaml:"status"`
}

func statusRows(status map[string]updater.Status) []statusRow {
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]statusRow, 0, len(names))
	for _, name := range names {
		st := status[name]
		row := statusRow{
			Name:           name,
			NeedsUpdate:    st.NeedsUpdate,
			Branch:         st.Branch.Or(""),
			LocalRevision:  st.LocalRevision.Or(""),
			RemoteRevision: st.RemoteRevision.Or(""),
			Requirements:   st.Requirements,
			Status:         st.Status,
		}
		if v, ok := st.DBRevision.Get(); ok {
			row.DBRevision = &v
		}
		if v, ok := st.DBNewest.Get(); ok {
			row.DBNewest = &v
		}
		rows = append(rows, row)
	}
	return rows
}

func printStatus(w io.Writer, format string, status map[string]updater.Status) error {
	rows := statusRows(status)
	return render(w, format, rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "COMPONENT\tBRANCH\tLOCAL\tREMOTE\tSCHEMA\tSTATUS")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Name, orDash(r.Branch), shortRev(r.LocalRevision), shortRev(r.RemoteRevision),
				schemaColumn(r.DBRevision, r.DBNewest), r.Status)
		}
	})
}

func printResults(w io.Writer, format string, results map[string]updater.Result) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	return render(w, format, results, func(tw *tabwriter.Writer) {
		if len(names) == 0 {
			fmt.Fprintln(tw, "Nothing to update")
			return
		}
		fmt.Fprintln(tw, "COMPONENT\tRESULT\tRESTART REQUIRED")
		for _, name := range names {
			r := results[name]
			fmt.Fprintf(tw, "%s\t%s\t%t\n", name, r.Status, r.RestartRequired)
		}
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortRev(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return orDash(rev)
}

func schemaColumn(current, newest *int64) string {
	if current == nil || newest == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", *current, *newest)
}

// loadConfig reads configuration and sets up logging for a maintenance
// command. Logs go to stderr so stdout stays machine readable.
func loadConfig(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)
	return cfg, log, nil
}
