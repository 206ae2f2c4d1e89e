package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/adapter/agent"
	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/logging"
	"github.com/XavTo/dexter/internal/policy"
	"github.com/XavTo/dexter/internal/service"
	"github.com/XavTo/dexter/internal/store"
	server "github.com/XavTo/dexter/internal/transport/http"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP server",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting dexter",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("data_dir", cfg.DataDir),
		zap.Int("max_concurrent_runs", cfg.MaxConcurrentRuns))

	events := store.NewFileEventLog(cfg.EventLogPath(), logger)
	pad := store.NewDirScratchpad(cfg.ScratchpadDir(), logger)

	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	svc := service.New(events, pad, agent.New(cfg, pad, logger), cfg, policyEngine, logger)
	e := server.NewServer(svc, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down dexter")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}
	// Runs cannot be cancelled; give them the rest of the budget to record
	// their outcome.
	if err := svc.Wait(shutdownCtx); err != nil {
		logger.Warn("runs still in flight at shutdown", zap.Error(err))
	}

	logger.Info("dexter stopped")
	return nil
}
