package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter server config.toml",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runInit,
	}

	cmd.Flags().StringVar(&flagStorageDir, "storage-path", "", "authoritative storage root (default: under the platform data directory)")
	cmd.Flags().StringVar(&flagBindAddr, "bind-addr", "0.0.0.0:3000", "address to listen on")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultServerConfigPath()
	}

	if cfgPath == "" {
		return fmt.Errorf("cannot determine default config path — pass --config explicitly")
	}

	cfg := config.DefaultServerConfig()

	if flagStorageDir != "" {
		cfg.StoragePath = flagStorageDir
	}

	if flagBindAddr != "" {
		cfg.BindAddr = flagBindAddr
	}

	if err := config.WriteDefaultServer(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote config to %s\n", cfgPath)

	return nil
}
