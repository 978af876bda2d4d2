package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/compact"
	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/logfile"
	"github.com/syncbridge/filesync/internal/transferclient"
)

// errVerifyMismatch signals that verify found local and server state out
// of sync. Distinct from a transport/config error so main can map it to
// exit code 1 without printing a stack-trace-flavored "Error: ..." line.
var errVerifyMismatch = errors.New("local and server state are out of sync")

// verifyReport is the read-only drift check `filesync verify` reports:
// it never calls POST /logs or applies any inbound event, unlike `sync`.
type verifyReport struct {
	PendingOutbound int `json:"pending_outbound"`
	PendingInbound  int `json:"pending_inbound"`
}

func (r verifyReport) inSync() bool {
	return r.PendingOutbound == 0 && r.PendingInbound == 0
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check whether local and server logs are in sync, without changing anything",
		Long: `Verify loads the local changes log and history log, fetches the server's
authoritative log, and reports how many local changes are unshipped and how
many server events are unapplied. It never posts to the server or touches
local files — use 'filesync sync' to actually reconcile.`,
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	localChanges, err := logfile.Load(cfg.ChangesPath)
	if err != nil {
		return fmt.Errorf("loading changes log: %w", err)
	}

	localChanges = compact.Compact(localChanges)

	history, err := logfile.Load(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("loading history log: %w", err)
	}

	client := transferclient.New(&http.Client{Timeout: httpClientTimeout}, cfg.ServerURL)

	if err := client.Health(cmd.Context()); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	serverLog, err := client.FetchLogs(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching server log: %w", err)
	}

	report := verifyReport{
		PendingOutbound: len(localChanges),
		PendingInbound:  countUnapplied(serverLog, history),
	}

	if flagJSON {
		if err := printVerifyJSON(&report); err != nil {
			return err
		}
	} else {
		printVerifyText(&report)
	}

	if !report.inSync() {
		return errVerifyMismatch
	}

	return nil
}

// countUnapplied returns how many serverLog events have no exact-tuple
// match in history — the same dominance rule the pipeline's cycle uses
// to decide what to apply inbound (spec.md §4.4 property P5).
func countUnapplied(serverLog, history event.Batch) int {
	seen := make(map[string]bool, len(history))
	for _, e := range history {
		seen[historyKey(e)] = true
	}

	n := 0

	for _, e := range serverLog {
		if !seen[historyKey(e)] {
			n++
		}
	}

	return n
}

func historyKey(e event.Event) string {
	return e.Kind.String() + "|" + e.Path + "|" + e.Time.String()
}

func printVerifyJSON(report *verifyReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

func printVerifyText(report *verifyReport) {
	if report.inSync() {
		statusf("In sync.\n")
		return
	}

	statusf("Out of sync:\n")
	statusf("  %d local change(s) not yet shipped\n", report.PendingOutbound)
	statusf("  %d server event(s) not yet applied\n", report.PendingInbound)
}
