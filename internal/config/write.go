package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions matches the teacher's standard config file mode:
// owner read/write, group/other read-only.
const configFilePermissions = 0o644

// configDirPermissions matches the teacher's standard directory mode.
const configDirPermissions = 0o755

// clientConfigTemplate is the default client config file content written
// by `filesync init`. Every setting is written out with its value and a
// comment line above it, so a user can discover every option without
// reading docs — grounded on
// the teacher's write.go configTemplate, narrowed to this spec's single
// sync root / single server.
const clientConfigTemplate = `# filesync client configuration

# Local directory mirrored against the server.
storage_path = %q

# Base URL of the filesyncd server.
server_url = %q

# Event logs and PID file (defaults live under the platform data directory).
log_path = %q
changes_path = %q
error_logs = %q
pid_file = %q

# Log verbosity: debug, info, warn, error
log_level = %q

# Scheduler idle tick period (spec default: 10s)
poll_interval = %q

# Extra sleep added after a cycle actually ran (spec default: 100s)
backoff_interval = %q
`

// serverConfigTemplate is the default server config file content written
// by `filesyncd init`.
const serverConfigTemplate = `# filesyncd server configuration

# Address the HTTP server listens on.
bind_addr = %q

# Authoritative storage root mirroring every connected client.
storage_path = %q

# Authoritative event log path.
log_path = %q

# PID file for the running daemon.
pid_file = %q

# Log verbosity: debug, info, warn, error
log_level = %q

# How long POST /logs holds the busy gate after compaction, coalescing
# concurrent posts (spec default: 3s)
debounce_interval = %q
`

// WriteDefault writes a commented client config template at path,
// populated with cfg's values. Fails if the file already exists, to avoid
// silently clobbering a user's edits.
func WriteDefault(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(clientConfigTemplate,
		cfg.StoragePath, cfg.ServerURL, cfg.LogPath, cfg.ChangesPath,
		cfg.ErrorLogs, cfg.PIDFile, cfg.LogLevel, cfg.PollInterval, cfg.BackoffInterval)

	if err := os.WriteFile(path, []byte(content), configFilePermissions); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// WriteDefaultServer writes a commented server config template at path,
// populated with cfg's values.
func WriteDefaultServer(path string, cfg *ServerConfig) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(serverConfigTemplate,
		cfg.BindAddr, cfg.StoragePath, cfg.LogPath, cfg.PIDFile, cfg.LogLevel, cfg.DebounceInterval)

	if err := os.WriteFile(path, []byte(content), configFilePermissions); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
