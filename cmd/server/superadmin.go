package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iliyamo/role-auth/internal/config"
	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/server"
	"github.com/iliyamo/role-auth/internal/service"
)

var newSuperadmin service.NewUser

var superadminCmd = &cobra.Command{
	Use:   "superadmin",
	Short: "Create or promote a superadmin",
	Long: `Seeds the admin and superadmin roles and makes sure the user with the
given email holds superadmin.  An existing user keeps their password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if newSuperadmin.Email == "" {
			return errors.New("--email is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel)

		c, err := server.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close(context.Background()) }()

		u, err := service.BootstrapSuperadmin(cmd.Context(), c.Deps, newSuperadmin)
		if err != nil {
			return err
		}
		log.Info("superadmin ready", "user_id", u.ID, "email", u.Email)
		return nil
	},
}

func init() {
	f := superadminCmd.Flags()
	f.StringVar(&newSuperadmin.Email, "email", "", "email of the superadmin")
	f.StringVar(&newSuperadmin.Password, "password", "", "password, used only when the user is created")
	f.StringVar(&newSuperadmin.Name, "name", "Super", "name, used only when the user is created")
	f.StringVar(&newSuperadmin.Surname, "surname", "Admin", "surname, used only when the user is created")
	rootCmd.AddCommand(superadminCmd)
}
