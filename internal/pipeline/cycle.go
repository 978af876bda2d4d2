package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/syncbridge/filesync/internal/compact"
	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/logfile"
	"github.com/syncbridge/filesync/internal/transferclient"
)

// RunCycle implements one Exchange Client cycle (spec.md §4.4, steps
// 1–10). A cycle that cannot reach the server returns nil (a no-op tick,
// not an error) — ErrServerUnreachable is logged at Warn and swallowed
// here so the scheduler's ticker never treats an offline server as fatal.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	if err := p.client.Health(ctx); err != nil {
		if errors.Is(err, transferclient.ErrServerUnreachable) {
			p.logger.Warn("server unreachable, skipping cycle", slog.Any("err", err))
			return nil
		}

		return fmt.Errorf("pipeline: health probe: %w", err)
	}

	p.Analysing.Store(true)
	defer p.Analysing.Store(false)

	localChanges, err := logfile.Load(p.cfg.ChangesPath)
	if err != nil {
		return fmt.Errorf("pipeline: load changes: %w", err)
	}

	localChanges = compact.Compact(localChanges)
	if err := logfile.Save(p.cfg.ChangesPath, localChanges); err != nil {
		return fmt.Errorf("pipeline: save compacted changes: %w", err)
	}

	serverLog, err := p.client.FetchLogs(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: fetch server log: %w", err)
	}

	history, err := logfile.Load(p.cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("pipeline: load history: %w", err)
	}

	var shipped, applied event.Batch

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var outErr error
		shipped, outErr = p.runOutbound(gctx, localChanges)
		return outErr
	})

	g.Go(func() error {
		var inErr error
		applied, inErr = p.runInbound(gctx, serverLog, history)
		return inErr
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline: cycle exchange: %w", err)
	}

	history = append(history, shipped...)
	history = append(history, applied...)

	if err := logfile.Save(p.cfg.HistoryPath, history); err != nil {
		return fmt.Errorf("pipeline: save history: %w", err)
	}

	if err := p.client.PostLogs(ctx, localChanges); err != nil {
		return fmt.Errorf("pipeline: post logs: %w", err)
	}

	if err := logfile.Truncate(p.cfg.ChangesPath); err != nil {
		return fmt.Errorf("pipeline: truncate changes: %w", err)
	}

	// Changes whose transfer failed stay in the changes log so the next
	// cycle retries them (shipped is an in-order subset of localChanges).
	failed := make(event.Batch, 0, len(localChanges)-len(shipped))
	for i, j := 0, 0; i < len(localChanges); i++ {
		if j < len(shipped) && localChanges[i].Equal(shipped[j]) {
			j++
			continue
		}
		failed = append(failed, localChanges[i])
	}
	if err := logfile.Append(p.cfg.ChangesPath, failed...); err != nil {
		return fmt.Errorf("pipeline: keep failed changes: %w", err)
	}

	drained := p.buffer.Drain()
	if len(drained) > 0 {
		if err := logfile.Append(p.cfg.ChangesPath, drained...); err != nil {
			return fmt.Errorf("pipeline: append drained queue: %w", err)
		}
	}

	history = compact.Compact(history)
	if err := logfile.Save(p.cfg.HistoryPath, history); err != nil {
		return fmt.Errorf("pipeline: recompact history: %w", err)
	}

	// A last drain catches anything queued between the first drain and
	// Analysing clearing below — it will be appended directly to disk by
	// Capture once Analysing flips false, so nothing here should remain,
	// but draining defensively keeps I5 (no event outlives two cycles)
	// true even if a capture raced the flag flip.
	if trailing := p.buffer.Drain(); len(trailing) > 0 {
		if err := logfile.Append(p.cfg.ChangesPath, trailing...); err != nil {
			return fmt.Errorf("pipeline: append trailing drain: %w", err)
		}
	}

	return nil
}

// runOutbound dispatches every local change to the server and returns the
// subset that was shipped successfully, for appending to the history log.
// A transfer the server answers with a non-2xx status (TransferError) is
// recorded to the error log and does not block the rest of the batch
// (spec.md §4.5, §7 — best-effort, not transactional). Any other error,
// such as a transport failure or a local read error, is not written to the
// error log; it aborts the cycle before the changes log is truncated.
func (p *Pipeline) runOutbound(ctx context.Context, changes event.Batch) (event.Batch, error) {
	shipped := make(event.Batch, 0, len(changes))

	for _, e := range changes {
		if err := p.transferOutbound(ctx, e); err != nil {
			var te *transferclient.TransferError
			if errors.As(err, &te) {
				if logErr := p.errLog.Append(te); logErr != nil {
					return shipped, fmt.Errorf("pipeline: write error log: %w", logErr)
				}

				continue
			}

			return shipped, fmt.Errorf("pipeline: outbound transfer: %w", err)
		}

		shipped = append(shipped, e)
	}

	return shipped, nil
}

// runInbound applies every server event whose exact tuple is absent from
// the local history log (property P5: the applied-remote set is S \ H
// under exact-tuple equality) and returns the ones attempted, for
// recording in the history log.
//
// A failed local apply is still counted as applied (RESOLVED open
// question, SPEC_FULL.md §9): the event is recorded in history so it is
// never retried, and the filesystem error is logged to errors.log. This
// preserves the source's existing behavior rather than silently changing
// retry semantics for inbound changes.
func (p *Pipeline) runInbound(ctx context.Context, serverLog, history event.Batch) (event.Batch, error) {
	seen := make(map[string]bool, len(history))
	for _, e := range history {
		seen[historyKey(e)] = true
	}

	applied := make(event.Batch, 0, len(serverLog))

	for _, e := range serverLog {
		if seen[historyKey(e)] {
			continue
		}

		if err := p.applyInbound(ctx, e); err != nil {
			p.logger.Warn("inbound apply failed, counting as applied",
				slog.String("path", e.Path), slog.Any("err", err))

			_ = p.errLog.Append(&transferclient.TransferError{
				Event:  e.Kind.String(),
				Status: 0,
				Path:   e.Path,
			})
		}

		applied = append(applied, e)
	}

	return applied, nil
}

func historyKey(e event.Event) string {
	return e.Kind.String() + "|" + e.Path + "|" + e.Time.String()
}
