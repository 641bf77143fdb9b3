package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/jd2q/internal/config"
	"github.com/jonathan/jd2q/internal/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API: authentication, encrypted Gemini key management,
question generation, answer generation, history and export.

Requires DATABASE_URL, VAULT_SECRET_KEY and JWT_SECRET.`,
	RunE: runServe,
}

var serveJSONLogs bool

func init() {
	serveCommand.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "Emit logs as JSON")
	rootCmd.AddCommand(serveCommand)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logrus.New()
	if serveJSONLogs {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	appCfg, err := config.NewApp()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	srv, err := server.New(context.Background(), appCfg, log)
	if err != nil {
		return err
	}
	return srv.Start()
}
