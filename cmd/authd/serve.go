package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	auth "github.com/edutrial/go-auth"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending migrations are applied and the
predefined roles are seeded before the listener opens.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogrus(cfg.Log)
	if err != nil {
		return err
	}
	logger := auth.NewLogrusLogger(log, "authd")

	db, err := openDatabase(cmd, cfg, logger.Named("db"))
	if err != nil {
		return err
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	if err := auth.NewSeeder(repo, nil).WithLogger(logger.Named("seed")).SeedRoles(cmd.Context()); err != nil {
		return err
	}

	srv, err := newServer(cfg, serverDeps{DB: db, Logrus: log})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
		errCh <- srv.app.Listen(cfg.Server.Addr)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("listener stopped", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := srv.close(shutdownCtx); err != nil {
		logger.Error("mail dispatcher shutdown", "error", err)
	}
	logger.Info("stopped")

	return serveErr
}
