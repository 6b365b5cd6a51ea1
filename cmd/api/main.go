package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"amarms/internal/config"
	"amarms/internal/logging"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "amarms",
	Short:         "A.M.A.R.M.S dashboard backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// @title           A.M.A.R.M.S API
// @version         1.0
// @description     Projects, task boards, resources, campaigns and team management behind role based permissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "configs/.env", "dotenv file read before the environment")
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd(), permissionsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig resolves configuration and starts logging. Every subcommand begins here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Service: "amarms"})
	return cfg, nil
}
