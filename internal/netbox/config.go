package netbox

import "time"

// Config holds the NetBox integration configuration.
type Config struct {
	URL         string        `mapstructure:"url"`          // NetBox base URL (e.g., "https://netbox.example.com")
	Token       string        `mapstructure:"token"`        // API token
	Timeout     time.Duration `mapstructure:"timeout"`      // HTTP client timeout (default: 30s)
	PingCount   int           `mapstructure:"ping_count"`   // ICMP echoes per reachability check (default: 3)
	PingTimeout time.Duration `mapstructure:"ping_timeout"` // reachability check deadline (default: 5s)
}

// DefaultConfig returns a Config with sensible defaults.
// URL is empty, meaning the module is disabled until configured.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		PingCount:   3,
		PingTimeout: 5 * time.Second,
	}
}
