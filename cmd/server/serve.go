package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel)
		log.Info("starting", "env", cfg.Env)

		srv, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
