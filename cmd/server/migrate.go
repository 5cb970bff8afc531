package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/database"
	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the database schema",
	Long: `Applies the embedded SQL migrations on MySQL or creates the indexes on
MongoDB.  The in-memory backend needs neither.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel)
		ctx := cmd.Context()

		backend, err := database.BackendFor(cfg.DatabaseURI)
		if err != nil {
			return err
		}
		switch backend {
		case database.BackendMySQL:
			db, err := database.OpenMySQL(ctx, cfg.DatabaseURI)
			if err != nil {
				return fmt.Errorf("open mysql: %w", err)
			}
			if err := database.MigrateMySQL(db); err != nil {
				return err
			}
		case database.BackendMongo:
			client, db, err := database.OpenMongo(ctx, cfg.DatabaseURI, cfg.DatabaseName)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(ctx) }()
			if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
				return err
			}
		}
		log.Info("schema up to date", "backend", backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
