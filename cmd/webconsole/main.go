package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/alarmdecoder/webconsole/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "webconsole",
	Short: "AlarmDecoder web console",
	Long:  `Web console for an AlarmDecoder alarm panel interface, with self-update.`,
	Example: `  # Run the console
  webconsole serve

  # See whether the checkout is behind its upstream, then update it
  webconsole update check
  webconsole update apply webapp

  # Inspect and repair the schema revision
  webconsole db status
  webconsole db stamp 3`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./config.yaml or /etc/webconsole/config.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "maintenance", Title: "Maintenance Commands:"},
	)

	serveCmd.GroupID = "server"
	updateCmd.GroupID = "maintenance"
	dbCmd.GroupID = "maintenance"
	userCmd.GroupID = "maintenance"

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
