// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for both filesync binaries: the client
// daemon (Config) and the server (ServerConfig). Field names mirror
// spec.md §6's "Persistent files per client" list verbatim — storage_path,
// log_path, changes_path, error_logs — which original_source's client
// config (client/src/config.rs) uses for the local sync root, not a
// storage tree; the server reuses storage_path for its own authoritative
// storage root, a naming collision inherited from the source rather than
// introduced here.
package config

// Config is the client daemon's configuration.
type Config struct {
	// StoragePath is the local directory mirrored against the server (the
	// "sync root" in spec.md's glossary). Named storage_path to match
	// original_source's client config field verbatim.
	StoragePath string `toml:"storage_path"`
	// LogPath is the client's history log of events already shipped to
	// the server (spec.md §3 HistoryLog).
	LogPath string `toml:"log_path"`
	// ChangesPath is the on-disk change log C1/C2 append to between
	// pipeline cycles (spec.md §3 ChangeLog).
	ChangesPath string `toml:"changes_path"`
	// ErrorLogs is the failed-transfer error log (spec.md §5, §7).
	ErrorLogs string `toml:"error_logs"`
	// ServerURL is the base URL of the filesyncd server this client talks
	// to (e.g. "http://localhost:3000").
	ServerURL string `toml:"server_url"`
	// LogLevel controls the daemon's slog verbosity: debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// PollInterval is the scheduler's idle tick period (spec.md §4.8,
	// default 10s).
	PollInterval string `toml:"poll_interval"`
	// BackoffInterval is the extra sleep the scheduler adds after a cycle
	// actually ran (spec.md §4.8, default 100s).
	BackoffInterval string `toml:"backoff_interval"`
	// PIDFile is the path the run command locks and records its PID in,
	// used to detect an already-running daemon and to target SIGHUP.
	PIDFile string `toml:"pid_file"`
}

// ServerConfig is the filesyncd server's configuration.
type ServerConfig struct {
	// BindAddr is the TCP address the HTTP server listens on (spec.md §6,
	// default "0.0.0.0:3000").
	BindAddr string `toml:"bind_addr"`
	// StoragePath is the authoritative storage root (C8) mirroring every
	// connected client's sync root.
	StoragePath string `toml:"storage_path"`
	// LogPath is the authoritative event log (spec.md §3 AuthoritativeLog).
	LogPath string `toml:"log_path"`
	// DebounceInterval is how long POST /logs holds `busy` after
	// compaction, coalescing concurrent posts (spec.md §4.6, default 3s).
	DebounceInterval string `toml:"debounce_interval"`
	// LogLevel controls the server's slog verbosity.
	LogLevel string `toml:"log_level"`
	// PIDFile is the path the serve command locks and records its PID in.
	PIDFile string `toml:"pid_file"`
}
