package netbox

import (
	"context"
	"fmt"

	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HTTPProvider     = (*Module)(nil)
	_ plugin.Validator        = (*Module)(nil)
	_ roles.InventoryProvider = (*Module)(nil)
)

// Module exposes NetBox as the device inventory for the rest of netcmd.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *Client
}

// New creates a new NetBox module instance.
func New() *Module {
	return &Module{}
}

// Info returns the module metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "netbox",
		Version:     "0.1.0",
		Description: "NetBox device inventory integration",
		APIVersion:  plugin.APIVersionCurrent,
		Roles:       []string{roles.RoleInventory},
	}
}

// Init initializes the module with its dependencies.
func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal netbox config, using defaults", zap.Error(err))
		}
	}

	if m.cfg.URL != "" && m.cfg.Token != "" {
		m.client = NewClient(m.cfg.URL, m.cfg.Token, m.cfg.Timeout)
		m.logger.Info("netbox client configured", zap.String("url", m.cfg.URL))
	}

	m.logger.Info("netbox module initialized")
	return nil
}

// ValidateConfig implements plugin.Validator. The inventory is unusable
// without a URL and token, so an unconfigured module is disabled rather
// than left to fail on first use.
func (m *Module) ValidateConfig() error {
	if m.client == nil {
		return fmt.Errorf("netbox url and token are required")
	}
	return nil
}

// Start begins the module's operations. Lookups are stateless and on-demand,
// so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("netbox module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("netbox module stopped")
	return nil
}

// DeviceByID implements roles.InventoryProvider. It assembles the full
// device view needed for variable validation: platform, primary addresses,
// interfaces with their IPs, and VLANs bound to the interfaces.
func (m *Module) DeviceByID(ctx context.Context, id int) (*models.Device, error) {
	nb, err := m.client.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	ifaces, err := m.client.ListDeviceInterfaces(ctx, id)
	if err != nil {
		return nil, err
	}

	ips, err := m.client.ListDeviceIPs(ctx, id)
	if err != nil {
		return nil, err
	}

	return mapDevice(nb, ifaces, ips), nil
}

// SiteVLANs implements roles.InventoryProvider.
func (m *Module) SiteVLANs(ctx context.Context, siteID int) ([]models.VLAN, error) {
	nbVLANs, err := m.client.ListSiteVLANs(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return mapVLANs(nbVLANs), nil
}
