package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Validate checks every client config field and returns all errors found
// (accumulated rather than fail-fast, so users see every problem in one
// pass — grounded on the teacher's Validate/errors.Join pattern).
func Validate(cfg *Config) error {
	var errs []error

	if cfg.StoragePath == "" {
		errs = append(errs, errors.New("storage_path: must not be empty"))
	} else if !filepath.IsAbs(cfg.StoragePath) {
		errs = append(errs, fmt.Errorf("storage_path: must be absolute, got %q", cfg.StoragePath))
	}

	if cfg.LogPath == "" {
		errs = append(errs, errors.New("log_path: must not be empty"))
	}

	if cfg.ChangesPath == "" {
		errs = append(errs, errors.New("changes_path: must not be empty"))
	}

	if cfg.ErrorLogs == "" {
		errs = append(errs, errors.New("error_logs: must not be empty"))
	}

	if err := validateURL(cfg.ServerURL); err != nil {
		errs = append(errs, fmt.Errorf("server_url: %w", err))
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if _, err := time.ParseDuration(cfg.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll_interval: %w", err))
	}

	if _, err := time.ParseDuration(cfg.BackoffInterval); err != nil {
		errs = append(errs, fmt.Errorf("backoff_interval: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateServer checks every server config field.
func ValidateServer(cfg *ServerConfig) error {
	var errs []error

	if cfg.BindAddr == "" {
		errs = append(errs, errors.New("bind_addr: must not be empty"))
	}

	if cfg.StoragePath == "" {
		errs = append(errs, errors.New("storage_path: must not be empty"))
	} else if !filepath.IsAbs(cfg.StoragePath) {
		errs = append(errs, fmt.Errorf("storage_path: must be absolute, got %q", cfg.StoragePath))
	}

	if cfg.LogPath == "" {
		errs = append(errs, errors.New("log_path: must not be empty"))
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if _, err := time.ParseDuration(cfg.DebounceInterval); err != nil {
		errs = append(errs, fmt.Errorf("debounce_interval: %w", err))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("missing host")
	}

	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log_level: must be one of debug/info/warn/error, got %q", level)
	}
}
