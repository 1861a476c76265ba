package gateway_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/gateway"
	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/plugin/plugintest"
	"github.com/netcmd/netcmd/pkg/roles"
)

type stubRoleModule struct {
	name     string
	roleName string
}

func (s *stubRoleModule) Info() plugin.PluginInfo {
	return plugin.PluginInfo{Name: s.name, Version: "0.0.0", APIVersion: plugin.APIVersionCurrent,
		Roles: []string{s.roleName}}
}
func (s *stubRoleModule) Init(context.Context, plugin.Dependencies) error { return nil }
func (s *stubRoleModule) Start(context.Context) error                     { return nil }
func (s *stubRoleModule) Stop(context.Context) error                      { return nil }

type stubInventoryModule struct{ stubRoleModule }

func (s *stubInventoryModule) DeviceByID(context.Context, int) (*models.Device, error) {
	return &models.Device{ID: 1}, nil
}
func (s *stubInventoryModule) SiteVLANs(context.Context, int) ([]models.VLAN, error) {
	return nil, nil
}

type stubCredentialModule struct{ stubRoleModule }

func (s *stubCredentialModule) ResolveForDevice(context.Context, string, string, *models.Device) (*roles.DeviceCredentials, error) {
	return &roles.DeviceCredentials{}, nil
}
func (s *stubCredentialModule) MarkUsed(context.Context, string) error { return nil }

type stubResolver struct {
	modules []plugin.Plugin
}

func (r *stubResolver) Resolve(name string) (plugin.Plugin, bool) {
	for _, m := range r.modules {
		if m.Info().Name == name {
			return m, true
		}
	}
	return nil, false
}

func (r *stubResolver) ResolveByRole(role string) []plugin.Plugin {
	var out []plugin.Plugin
	for _, m := range r.modules {
		for _, have := range m.Info().Roles {
			if have == role {
				out = append(out, m)
			}
		}
	}
	return out
}

type stubValidator struct{}

func (stubValidator) ValidateAccessToken(string) (*gateway.TokenClaims, error) {
	return &gateway.TokenClaims{UserID: "u-1", Username: "tester"}, nil
}

func TestContract(t *testing.T) {
	factory := func() plugin.Plugin {
		m := gateway.New()
		m.SetTokenValidator(stubValidator{})
		return m
	}
	depsFn := func(name string) plugin.Dependencies {
		logger, _ := zap.NewDevelopment()
		return plugin.Dependencies{
			Logger: logger.Named(name),
			Plugins: &stubResolver{modules: []plugin.Plugin{
				&stubInventoryModule{stubRoleModule{name: "netbox", roleName: roles.RoleInventory}},
				&stubCredentialModule{stubRoleModule{name: "vault", roleName: roles.RoleCredentialStore}},
			}},
		}
	}
	plugintest.TestPluginContract(t, factory, depsFn)
}

func TestStartRequiresTokenValidator(t *testing.T) {
	m := gateway.New()
	deps := plugin.Dependencies{
		Logger: zap.NewNop(),
		Plugins: &stubResolver{modules: []plugin.Plugin{
			&stubInventoryModule{stubRoleModule{name: "netbox", roleName: roles.RoleInventory}},
			&stubCredentialModule{stubRoleModule{name: "vault", roleName: roles.RoleCredentialStore}},
		}},
	}
	if err := m.Init(context.Background(), deps); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without a token validator")
	}
}
