package command

import "time"

// Config holds the command module's settings.
type Config struct {
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	DeviceRateLimit  int           `mapstructure:"device_rate_limit"`
	DeviceRateWindow time.Duration `mapstructure:"device_rate_window"`
	BulkMaxDevices   int           `mapstructure:"bulk_max_devices"`
}

// DefaultConfig returns sensible limits for interactive use.
func DefaultConfig() Config {
	return Config{
		ExecutionTimeout: 30 * time.Second,
		DeviceRateLimit:  10,
		DeviceRateWindow: time.Minute,
		BulkMaxDevices:   50,
	}
}
