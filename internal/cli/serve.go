package cli

import (
	"github.com/spf13/cobra"

	"docrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for uploading documents and asking questions.

Examples:
  docrag serve
  docrag serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	svc, err := buildServices(cmd.Context(), cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(cfg.Server, server.Deps{
		Ingest:   svc.ingest,
		Retrieve: svc.retrieve,
		Answer:   svc.answer,
		Store:    svc.store,
		Catalog:  svc.catalog,
		Metrics:  svc.metrics,
		Logger:   svc.log,
		Version:  Version,
	})
	return srv.Run(cmd.Context())
}
