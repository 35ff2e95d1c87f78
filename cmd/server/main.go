package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appointment-scheduler/internal/config"
	"appointment-scheduler/internal/logging"
	"appointment-scheduler/internal/server"
	"appointment-scheduler/internal/store"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Appointment scheduler web app",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web and gRPC listeners",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		os.Exit(1)
	}
}

func load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, !cfg.Production())
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, err := server.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("failed to start server", zap.Error(err))
		return err
	}
	return srv.Run(cmd.Context())
}

func runMigrate(up bool) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	applied, err := store.Migrate(cfg.DatabaseURL, up)
	if err != nil {
		return err
	}
	if applied {
		log.Info("migrations applied", zap.Bool("up", up))
	} else {
		log.Info("no migrations to apply")
	}
	return nil
}
