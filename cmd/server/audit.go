package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/queue"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Consume user events into the audit log",
	Long: `Reads user lifecycle events from RabbitMQ and appends one line per event
to AUDIT_LOG_PATH.  Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.EventsEnabled() {
			return errors.New("RABBITMQ_URL is not set")
		}
		log := logging.New(cfg.LogLevel)

		consumer := &queue.AuditConsumer{
			URL:     cfg.RabbitMQURL,
			Queue:   cfg.EventsQueue,
			LogPath: cfg.AuditLogPath,
			Log:     log,
		}
		if err := consumer.Run(cmd.Context()); !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("audit consumer stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
