package main

import (
	"github.com/alarmdecoder/webconsole/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title AlarmDecoder Web Console API
// @version 1.0
// @description Alarm panel web console with self-update.
// @host localhost:5000
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web console",
	Long: `Start the HTTP API, the update worker and the background update check.

Examples:
  webconsole serve                 # Use config.yaml from the default locations
  webconsole serve --port 8080     # Override port
  webconsole serve -c /etc/webconsole/config.yaml

Environment variables:
  WEBCONSOLE_SERVER_PORT          Server port (default: 5000)
  WEBCONSOLE_DATABASE_DRIVER      Database driver: sqlite, postgres
  WEBCONSOLE_DATABASE_DSN         Database connection string
  WEBCONSOLE_QUEUE_TYPE           Queue type: memory, valkey
  WEBCONSOLE_AUTH_JWT_SECRET      JWT signing secret
  WEBCONSOLE_UPDATER_SOURCE_DIR   Git checkout of the console
  ADMIN_USERNAME                  Bootstrap admin username
  ADMIN_PASSWORD                  Bootstrap admin password`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.RunWithSignalHandling(server.Config{
			ConfigFile: configFile,
			Port:       servePort,
			Version:    Version,
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}
