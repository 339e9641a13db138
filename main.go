package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warbler/internal/config"
	"warbler/internal/logging"
	"warbler/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "warbler",
	Short: "Warbler, a small social network for short messages",
	Long: `Warbler lets users sign up, post short messages, follow other users
and like their messages.

Configuration is read from the environment (and a .env file when present):
  DATABASE_URL   sqlite3:///path/to.db or postgresql://...
  SECRET_KEY     session signing key
  PORT           HTTP port (default 5000)`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// setup loads config and opens the logger and store shared by every command.
func setup(ctx context.Context) (*config.Config, *zap.Logger, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(ctx, cfg.DatabaseURL, store.WithLogger(logger.Named("store")))
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, st, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, st, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	srv, err := newServer(cfg, st, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
