package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/pipeline"
	"github.com/syncbridge/filesync/internal/transferclient"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single exchange cycle",
		Long: `Sync runs one compact-fetch-exchange-drain cycle against the configured
server and exits. Use 'filesync run' for continuous background sync.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg, logger := cc.Cfg, cc.Logger

	httpClient := &http.Client{Timeout: httpClientTimeout}
	client := transferclient.New(httpClient, cfg.ServerURL)
	errLog := transferclient.NewErrorLog(cfg.ErrorLogs)

	p := pipeline.New(pipeline.Config{
		SyncRoot:    cfg.StoragePath,
		ChangesPath: cfg.ChangesPath,
		HistoryPath: cfg.LogPath,
	}, client, errLog, logger)

	started := time.Now()

	if err := p.RunCycle(cmd.Context()); err != nil {
		return err
	}

	statusf("Sync cycle complete (%s)\n", time.Since(started).Round(time.Millisecond))

	return nil
}
