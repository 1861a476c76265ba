// Package vault manages encrypted device credentials. Credential sets
// are encrypted per-record with keys derived from an application
// secret, owned strictly by the user who created them, and released to
// other modules only through opaque access tokens.
package vault

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin            = (*Module)(nil)
	_ plugin.HTTPProvider      = (*Module)(nil)
	_ plugin.Validator         = (*Module)(nil)
	_ roles.CredentialResolver = (*Module)(nil)
)

// Module is the vault plugin.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	service *Service
	handler *Handler
}

// New creates a new vault module instance.
func New() *Module {
	return &Module{}
}

// Info returns the module metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "vault",
		Version:     "0.1.0",
		Description: "Encrypted credential storage with token-based access",
		APIVersion:  plugin.APIVersionCurrent,
		Roles:       []string{roles.RoleCredentialStore},
	}
}

// Init initializes the module with its dependencies.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal vault config", zap.Error(err))
		}
	}
	if m.cfg.Secret == "" {
		// ValidateConfig reports this after Init; nothing else to set up.
		return nil
	}

	store, err := NewStore(ctx, deps.Store)
	if err != nil {
		return err
	}

	m.service = NewService(store, NewKeyring(m.cfg.Secret), m.logger,
		newBusPublisher(deps.Bus, m.logger))
	m.handler = NewHandler(m.service, m.logger)

	m.logger.Info("vault module initialized")
	return nil
}

// ValidateConfig implements plugin.Validator. Without a secret there is
// no master key, so an unconfigured vault is disabled up front instead
// of failing on the first encrypt.
func (m *Module) ValidateConfig() error {
	if m.cfg.Secret == "" {
		return errors.New("vault secret is required")
	}
	return nil
}

// Start begins the module's operations. The vault is request-driven, so
// there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("vault module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("vault module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return m.handler.Routes()
}

// SetConnectivityTester wires the SSH connectivity check into the
// test endpoint. Called by the composition root after Init.
func (m *Module) SetConnectivityTester(t ConnectivityTester) {
	if m.handler != nil {
		m.handler.SetConnectivityTester(t)
	}
}

// ResolveForDevice implements roles.CredentialResolver.
func (m *Module) ResolveForDevice(ctx context.Context, token, userID string, device *models.Device) (*roles.DeviceCredentials, error) {
	return m.service.ResolveForDevice(ctx, token, userID, device)
}

// MarkUsed implements roles.CredentialResolver.
func (m *Module) MarkUsed(ctx context.Context, credentialSetID string) error {
	return m.service.MarkUsed(ctx, credentialSetID)
}
