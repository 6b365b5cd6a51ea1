package main

import (
	"context"
	"fmt"
	"os"

	"amarms/internal/database"
	"amarms/internal/logging"
	"amarms/internal/mailer"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/service"
	"amarms/internal/token"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate the schema on start")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewConnection(cfg.DB.DSN(), !cfg.Release())
			if err != nil {
				return err
			}
			return database.Migrate(db)
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an active administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewConnection(cfg.DB.DSN(), false)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			authService := service.NewAuthService(
				repository.NewUserRepository(db),
				repository.NewTokenRepository(db),
				repository.NewAuditRepository(db),
				repository.NewTransactionManager(db),
				token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL),
				mailer.NewLogMailer(logging.Logger),
				cfg.RefreshTokenTTL,
			)
			user, err := authService.SeedAdmin(context.Background(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("admin %s <%s> created with id %s\n", user.Username, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// permissionsCmd prints the role matrix. It needs no database.
func permissionsCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Print the role to permission matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			roles := permission.Roles()
			if role != "" {
				if !permission.IsKnownRole(permission.Role(role)) {
					return fmt.Errorf("unknown role %q", role)
				}
				roles = []permission.Role{permission.Role(role)}
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			header := table.Row{"Permission"}
			for _, r := range roles {
				header = append(header, string(r))
			}
			tw.AppendHeader(header)
			for _, def := range permission.Catalog() {
				row := table.Row{string(def.Code)}
				for _, r := range roles {
					mark := ""
					if permission.HasPermission(r, def.Code) {
						mark = "x"
					}
					row = append(row, mark)
				}
				tw.AppendRow(row)
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only show this role")
	return cmd
}
