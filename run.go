package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syncbridge/filesync/internal/pipeline"
	"github.com/syncbridge/filesync/internal/scheduler"
	"github.com/syncbridge/filesync/internal/transferclient"
	"github.com/syncbridge/filesync/internal/watcher"
	"github.com/syncbridge/filesync/internal/wsnotify"
)

// httpClientTimeout bounds every request made through the daemon's HTTP
// client: the log/health round trips and the file transfers alike, so an
// upload or download that takes longer than this fails.
const httpClientTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon",
		Long: `Run watches the configured storage_path for local changes and runs a
scheduler that exchanges them with the filesyncd server on every idle tick,
server push notification, or SIGHUP.`,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg, logger := cc.Cfg, cc.Logger

	cleanup, err := writePIDFile(cfg.PIDFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(cmd.Context(), logger)

	httpClient := &http.Client{Timeout: httpClientTimeout}
	client := transferclient.New(httpClient, cfg.ServerURL)
	errLog := transferclient.NewErrorLog(cfg.ErrorLogs)

	p := pipeline.New(pipeline.Config{
		SyncRoot:    cfg.StoragePath,
		ChangesPath: cfg.ChangesPath,
		HistoryPath: cfg.LogPath,
	}, client, errLog, logger)

	w := watcher.New(cfg.StoragePath, p.Capture, logger)

	ws := wsnotify.New(wsURLFromServerURL(cfg.ServerURL), logger)

	updates := mergeUpdates(ctx, ws.Updates(), sighupChannel(ctx, logger))

	sched := scheduler.New(p.RunCycle, &p.Analysing, updates, logger)

	if idle, err := time.ParseDuration(cfg.PollInterval); err == nil {
		if backoff, err := time.ParseDuration(cfg.BackoffInterval); err == nil {
			sched.SetIntervals(idle, backoff)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Run(gctx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		ws.Run(gctx)
		return nil
	})

	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	logger.Info("filesync daemon started",
		slog.String("storage_path", cfg.StoragePath),
		slog.String("server_url", cfg.ServerURL),
	)

	return g.Wait()
}

// wsURLFromServerURL derives the server's websocket notification endpoint
// from its HTTP base URL (http → ws, https → wss).
func wsURLFromServerURL(serverURL string) string {
	wsURL := strings.Replace(serverURL, "http", "ws", 1)
	return strings.TrimRight(wsURL, "/") + "/ws"
}

// sighupChannel returns a channel that receives a value every time the
// daemon gets SIGHUP, letting an operator wake the scheduler early
// (`filesync run`'s equivalent of the teacher's pause/resume SIGHUP
// handshake) without waiting out the idle interval.
func sighupChannel(ctx context.Context, logger *slog.Logger) <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	out := make(chan struct{}, 1)

	go func() {
		defer signal.Stop(sigCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				logger.Info("received SIGHUP, waking scheduler")

				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}

// mergeUpdates fans multiple wake-up sources into the single channel the
// scheduler selects on.
func mergeUpdates(ctx context.Context, chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{}, 1)

	for _, c := range chans {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-c:
					if !ok {
						return
					}

					select {
					case out <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	return out
}
