// Package command manages reusable command templates with typed
// <name> placeholders and runs them against inventory devices using
// credentials resolved through the vault.
package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/connector"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module is the command plugin.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	service *Service
	handler *Handler

	// executor may be injected before Init for tests; otherwise an SSH
	// connector is built during Init.
	executor Executor
}

// New creates a new command module instance.
func New() *Module {
	return &Module{}
}

// SetExecutor overrides the connector used for execution. Must be
// called before Init.
func (m *Module) SetExecutor(e Executor) {
	m.executor = e
}

// Info returns the module metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "commands",
		Version:      "0.1.0",
		Description:  "Command templates with variable substitution and device execution",
		APIVersion:   plugin.APIVersionCurrent,
		Dependencies: []string{"vault", "netbox"},
		Roles:        []string{roles.RoleExecutor},
	}
}

// Init initializes the module with its dependencies.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal command config, using defaults", zap.Error(err))
		}
	}

	store, err := NewStore(ctx, deps.Store)
	if err != nil {
		return err
	}

	inventory, err := resolveRole[roles.InventoryProvider](deps.Plugins, roles.RoleInventory)
	if err != nil {
		return err
	}
	credentials, err := resolveRole[roles.CredentialResolver](deps.Plugins, roles.RoleCredentialStore)
	if err != nil {
		return err
	}

	if m.executor == nil {
		m.executor = connector.NewSSHConnector(connector.DefaultConfig(), m.logger.Named("ssh"))
	}

	m.service = NewService(store, inventory, credentials, m.executor, m.cfg,
		m.logger, newBusPublisher(deps.Bus, m.logger))
	m.handler = NewHandler(m.service, m.logger)

	m.logger.Info("command module initialized",
		zap.Duration("execution_timeout", m.cfg.ExecutionTimeout),
		zap.Int("bulk_max_devices", m.cfg.BulkMaxDevices))
	return nil
}

// Start begins the module's operations. Execution is request-driven.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("command module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("command module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return m.handler.Routes()
}

// resolveRole finds the first module filling a role that implements T.
func resolveRole[T any](resolver plugin.PluginResolver, role string) (T, error) {
	var zero T
	if resolver == nil {
		return zero, errors.New("plugin resolver not available")
	}
	for _, p := range resolver.ResolveByRole(role) {
		if impl, ok := p.(T); ok {
			return impl, nil
		}
	}
	return zero, errors.New("no module provides role " + role)
}
