package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/logfile"
	"github.com/syncbridge/filesync/internal/transferclient"
)

// statusReport summarizes the daemon's current state for `filesync status`.
type statusReport struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid,omitempty"`
	StoragePath    string `json:"storage_path"`
	ServerURL      string `json:"server_url"`
	ServerReached  bool   `json:"server_reached"`
	PendingChanges int    `json:"pending_changes"`
	HistoryEvents  int    `json:"history_events"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status, pending changes, and server reachability",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	report := statusReport{
		StoragePath: cfg.StoragePath,
		ServerURL:   cfg.ServerURL,
	}

	if pid, err := readPIDFile(cfg.PIDFile); err == nil {
		if proc, procErr := os.FindProcess(pid); procErr == nil {
			if proc.Signal(syscall.Signal(0)) == nil {
				report.Running = true
				report.PID = pid
			}
		}
	}

	changes, err := logfile.Load(cfg.ChangesPath)
	if err == nil {
		report.PendingChanges = len(changes)
	}

	history, err := logfile.Load(cfg.LogPath)
	if err == nil {
		report.HistoryEvents = len(history)
	}

	client := transferclient.New(&http.Client{Timeout: httpClientTimeout}, cfg.ServerURL)
	report.ServerReached = client.Health(cmd.Context()) == nil

	if flagJSON {
		return printStatusJSON(&report)
	}

	printStatusText(&report)

	return nil
}

func printStatusJSON(report *statusReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

func printStatusText(report *statusReport) {
	state := colorize("stopped", ansiRed)
	if report.Running {
		state = colorize("running", ansiGreen) + " (pid " + strconv.Itoa(report.PID) + ")"
	}

	statusf("Daemon:   %s\n", state)
	statusf("Storage:  %s\n", report.StoragePath)

	reachable := colorize("unreachable", ansiRed)
	if report.ServerReached {
		reachable = colorize("reachable", ansiGreen)
	}

	statusf("Server:   %s (%s)\n", report.ServerURL, reachable)
	statusf("Pending:  %d local change(s) not yet shipped\n", report.PendingChanges)
	statusf("History:  %d event(s) recorded\n", report.HistoryEvents)
}
