package vault

// Config holds the vault module's settings. Secret seeds master key
// derivation and must be set for the module to initialize.
type Config struct {
	Secret string `mapstructure:"secret"`
}
