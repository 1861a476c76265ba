package gateway

import "time"

// Config holds the gateway module's settings.
type Config struct {
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	MaxSessions    int           `mapstructure:"max_sessions"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 30 * time.Minute,
		MaxSessions:    100,
		ConnectTimeout: 10 * time.Second,
		ReapInterval:   5 * time.Minute,
	}
}
