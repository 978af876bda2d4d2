package server

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/syncbridge/filesync/internal/event"
)

// janitorSchedule runs the maintenance sweep every 10 minutes. Nothing in
// original_source schedules periodic maintenance — logs.toml is only ever
// compacted inline during POST /logs — but an always-append authoritative
// log that is never swept independently of client traffic can grow
// unbounded during a long quiet period with no posts. Grounded on
// colebrumley-srvrmgr's internal/trigger/scheduled.go, the pack's only
// cron-scheduled background-job pattern.
const janitorSchedule = "0 */10 * * * *"

// Janitor periodically recompacts the authoritative log on a schedule
// independent of client traffic, so a long quiet period still gets swept.
type Janitor struct {
	logs   *LogStore
	logger *slog.Logger
	cron   *cron.Cron
}

// NewJanitor returns a Janitor that will sweep logs once started.
func NewJanitor(logs *LogStore, logger *slog.Logger) *Janitor {
	return &Janitor{
		logs:   logs,
		logger: logger,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the sweep job and starts the cron scheduler. It returns
// an error only if the schedule expression fails to parse, which would be
// a programmer error in janitorSchedule.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(janitorSchedule, j.sweep); err != nil {
		return err
	}

	j.cron.Start()

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for any running sweep to finish.
func (j *Janitor) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
}

// sweep recompacts the authoritative log through LogStore.Post with an
// empty incoming batch, so the sweep goes through the same busy gate as a
// real client post rather than racing it.
func (j *Janitor) sweep() {
	if err := j.logs.Post(event.Batch{}); err != nil {
		j.logger.Warn("janitor: sweep failed", slog.Any("err", err))
	}
}
