package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// TypingIdleTimeout is the server-enforced expiry for typing indicators.
	TypingIdleTimeout time.Duration `mapstructure:"typing_idle_timeout" yaml:"typing_idle_timeout"`
	// StoreTimeout bounds every persistence call made during an admission.
	StoreTimeout time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	// HistoryLimit caps how many past messages a joiner receives.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	// MessageRateLimit caps inbound commands per connection per minute.
	MessageRateLimit int `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "chupchat.db",
		LogLevel:          "info",
		TypingIdleTimeout: 3 * time.Second,
		StoreTimeout:      3 * time.Second,
		HistoryLimit:      100,
		MessageRateLimit:  120,
	}
}
