package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/netcmd.db")

	// Module defaults
	v.SetDefault("modules.vault.enabled", true)
	v.SetDefault("modules.commands.enabled", true)
	v.SetDefault("modules.commands.execution_timeout", "30s")
	v.SetDefault("modules.commands.device_rate_limit", 10)
	v.SetDefault("modules.commands.device_rate_window", "1m")
	v.SetDefault("modules.commands.bulk_max_devices", 50)
	v.SetDefault("modules.netbox.enabled", true)
	v.SetDefault("modules.netbox.url", "")
	v.SetDefault("modules.netbox.timeout", "10s")
	v.SetDefault("modules.gateway.enabled", true)
	v.SetDefault("modules.gateway.session_timeout", "30m")
	v.SetDefault("modules.gateway.max_sessions", 100)
	v.SetDefault("modules.connector.connect_timeout", "10s")
	v.SetDefault("modules.connector.ping_timeout", "2s")
	v.SetDefault("modules.connector.ping_count", 3)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("netcmd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/netcmd")
	}

	// Environment variable support: NETCMD_SERVER_PORT=9090
	v.SetEnvPrefix("NETCMD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
