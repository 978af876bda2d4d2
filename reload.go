package main

import (
	"github.com/spf13/cobra"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Wake a running daemon's scheduler early via SIGHUP",
		Long: `Reload sends SIGHUP to the daemon named in pid_file, the same signal
'filesync run' handles as an early wake-up for its scheduler (see run.go's
sighupChannel) instead of waiting out the idle interval.`,
		RunE: runReload,
	}
}

func runReload(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	return sendSIGHUP(cc.Cfg.PIDFile)
}
