package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/server"
)

// shutdownGrace bounds how long an in-flight request gets to finish once
// shutdown starts.
const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg, logger := cc.Cfg, cc.Logger

	cleanup, err := writePIDFile(cfg.PIDFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(cmd.Context(), logger)

	storage := server.NewStorage(cfg.StoragePath)
	logs := server.NewLogStore(cfg.LogPath)

	if debounce, parseErr := time.ParseDuration(cfg.DebounceInterval); parseErr == nil {
		logs.SetDebounceInterval(debounce)
	}

	hub := server.NewHub(logger)
	srv := server.New(storage, logs, hub, logger)

	janitor := server.NewJanitor(logs, logger)
	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("starting janitor: %w", err)
	}
	defer janitor.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: srv.Mux(),
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("filesyncd listening", slog.String("bind_addr", cfg.BindAddr))

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}

		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return <-errCh
}
