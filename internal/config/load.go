package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the client config file at path, starting from
// DefaultConfig() so unset fields keep their defaults, then validates the
// result. A missing file is an error; LoadOrDefault falls back to
// DefaultConfig() instead.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading client config", slog.String("path", path))

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, falling back to DefaultConfig()
// if the file does not exist.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("no config file found, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve applies environment and CLI overrides onto a loaded config, in
// increasing priority order: file, env, CLI. CLI values take an empty
// string to mean "not set".
func Resolve(cfg *Config, env EnvOverrides, cliStorageDir, cliServerURL string) *Config {
	resolved := *cfg

	if env.StorageDir != "" {
		resolved.StoragePath = env.StorageDir
	}

	if env.ServerURL != "" {
		resolved.ServerURL = env.ServerURL
	}

	if cliStorageDir != "" {
		resolved.StoragePath = cliStorageDir
	}

	if cliServerURL != "" {
		resolved.ServerURL = cliServerURL
	}

	return &resolved
}

// LoadServer reads and parses the server config file at path.
func LoadServer(path string, logger *slog.Logger) (*ServerConfig, error) {
	logger.Debug("loading server config", slog.String("path", path))

	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing server config file %s: %w", path, err)
	}

	if err := ValidateServer(cfg); err != nil {
		return nil, fmt.Errorf("server config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadServerOrDefault loads the server config at path, falling back to
// DefaultServerConfig() if the file does not exist.
func LoadServerOrDefault(path string, logger *slog.Logger) (*ServerConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("no server config file found, using defaults", slog.String("path", path))
		return DefaultServerConfig(), nil
	}

	return LoadServer(path, logger)
}

// ResolveServer applies environment and CLI overrides onto a loaded server
// config, in increasing priority order: file, env, CLI.
func ResolveServer(cfg *ServerConfig, env ServerEnvOverrides, cliStorageDir, cliBindAddr string) *ServerConfig {
	resolved := *cfg

	if env.StorageDir != "" {
		resolved.StoragePath = env.StorageDir
	}

	if env.BindAddr != "" {
		resolved.BindAddr = env.BindAddr
	}

	if cliStorageDir != "" {
		resolved.StoragePath = cliStorageDir
	}

	if cliBindAddr != "" {
		resolved.BindAddr = cliBindAddr
	}

	return &resolved
}
