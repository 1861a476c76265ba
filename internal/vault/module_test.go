package vault_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/store"
	"github.com/netcmd/netcmd/internal/vault"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/plugin/plugintest"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return vault.New() }, nil)
}

// configStub supplies a vault secret the way the registry's scoped
// config section would.
type configStub struct {
	plugin.Config
}

func (configStub) Unmarshal(target any) error {
	if cfg, ok := target.(*vault.Config); ok {
		cfg.Secret = "contract-test-secret"
	}
	return nil
}

func TestContractWithSecret(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return vault.New() },
		func(name string) plugin.Dependencies {
			st, err := store.New(":memory:")
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			t.Cleanup(func() { st.Close() })
			logger, _ := zap.NewDevelopment()
			return plugin.Dependencies{
				Config: configStub{},
				Logger: logger.Named(name),
				Store:  st,
			}
		})
}
