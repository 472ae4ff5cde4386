package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "CHUPCHAT"
	envConfigDir      = "CHUPCHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName = "config.yaml"
)

// Load resolves configuration and the path it came from.
// Precedence: defaults < config file < CHUPCHAT_* env vars < caller overrides.
// A missing config file is not an error: a default one is written in its
// place so the first run leaves something editable behind.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range map[string]any{
		"addr":                cfg.Addr,
		"read_header_timeout": cfg.ReadHeaderTimeout,
		"shutdown_timeout":    cfg.ShutdownTimeout,
		"database_path":       cfg.DatabasePath,
		"log_level":           cfg.LogLevel,
		"typing_idle_timeout": cfg.TypingIdleTimeout,
		"store_timeout":       cfg.StoreTimeout,
		"history_limit":       cfg.HistoryLimit,
		"message_rate_limit":  cfg.MessageRateLimit,
	} {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := configPath(explicitPath)
	v.SetConfigFile(path)

	switch err := v.ReadInConfig(); {
	case err == nil:
	case isMissingConfig(err):
		seedDefaultConfig(logger, path, cfg)
		if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
			logger.Warn().Err(readErr).Str("path", path).Msg("config unreadable after seeding")
		}
	default:
		return cfg, path, fmt.Errorf("read config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func configPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, defaultConfigName)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func seedDefaultConfig(logger *zerolog.Logger, path string, cfg Config) {
	err := func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o600)
	}()

	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write default config")
		return
	}
	logger.Info().Str("path", path).Msg("created default config")
}
