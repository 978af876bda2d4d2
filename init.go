package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncbridge/filesync/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.toml",
		Long: `Init writes a config file populated with the default storage_path,
log paths, and server_url, commented for discoverability. Fails if a config
file already exists at the target path.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runInit,
	}

	cmd.Flags().StringVar(&flagStorageDir, "storage-path", "", "local directory to sync (default: under the platform data directory)")
	cmd.Flags().StringVar(&flagServerURL, "server-url", "http://localhost:3000", "filesyncd server base URL")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = config.ReadEnvOverrides().ConfigPath
	}

	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	if cfgPath == "" {
		return fmt.Errorf("cannot determine default config path — pass --config explicitly")
	}

	cfg := config.DefaultConfig()

	if flagStorageDir != "" {
		cfg.StoragePath = flagStorageDir
	}

	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}

	if err := config.WriteDefault(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	statusf("Wrote config to %s\n", cfgPath)

	return nil
}
