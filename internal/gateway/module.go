// Package gateway provides browser-based SSH terminal access to
// inventory devices over WebSocket, with credentials resolved through
// the vault so the client never handles a plaintext password.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/roles"
)

// Event topics emitted by the gateway module.
const (
	EventSessionOpened = "gateway.session.opened"
	EventSessionClosed = "gateway.session.closed"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module is the gateway plugin.
type Module struct {
	logger      *zap.Logger
	cfg         Config
	bus         plugin.Publisher
	sessions    *SessionManager
	bridge      *SSHBridge
	tokens      TokenValidator
	inventory   roles.InventoryProvider
	credentials roles.CredentialResolver

	stopReaper context.CancelFunc
}

// New creates a new gateway module instance.
func New() *Module {
	return &Module{}
}

// SetTokenValidator wires JWT validation into the WebSocket upgrade
// path. Must be called before Start.
func (m *Module) SetTokenValidator(t TokenValidator) {
	m.tokens = t
}

// Info returns the module metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "gateway",
		Version:      "0.1.0",
		Description:  "WebSocket SSH terminal access to devices",
		APIVersion:   plugin.APIVersionCurrent,
		Dependencies: []string{"vault", "netbox"},
		Roles:        []string{roles.RoleRemoteAccess},
	}
}

// Init initializes the module with its dependencies.
func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal gateway config, using defaults", zap.Error(err))
		}
	}

	var err error
	m.inventory, err = resolveRole[roles.InventoryProvider](deps.Plugins, roles.RoleInventory)
	if err != nil {
		return err
	}
	m.credentials, err = resolveRole[roles.CredentialResolver](deps.Plugins, roles.RoleCredentialStore)
	if err != nil {
		return err
	}

	m.sessions = NewSessionManager(m.cfg.MaxSessions)
	m.bridge = &SSHBridge{module: m, logger: m.logger.Named("bridge")}

	m.logger.Info("gateway module initialized",
		zap.Int("max_sessions", m.cfg.MaxSessions),
		zap.Duration("session_timeout", m.cfg.SessionTimeout))
	return nil
}

// Start launches the expired-session reaper.
func (m *Module) Start(_ context.Context) error {
	if m.tokens == nil {
		return errors.New("gateway requires a token validator")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stopReaper = cancel
	go m.reapLoop(ctx)

	m.logger.Info("gateway module started")
	return nil
}

// Stop shuts down the reaper. In-flight sessions end when their
// connections close.
func (m *Module) Stop(_ context.Context) error {
	if m.stopReaper != nil {
		m.stopReaper()
	}
	m.logger.Info("gateway module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider. The ws route authenticates via
// query token inside the bridge; the auth middleware skips it.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/ws/{device_id}", Handler: m.bridge.HandleTerminal},
		{Method: "GET", Path: "/sessions", Handler: m.handleListSessions},
	}
}

func (m *Module) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := m.sessions.List()
	if sessions == nil {
		sessions = []*Session{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sessions)
}

func (m *Module) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range m.sessions.CloseExpired() {
				m.logger.Info("expired session reaped", zap.String("session_id", s.ID))
				m.publish(ctx, EventSessionClosed, map[string]any{
					"session_id": s.ID,
					"device_id":  s.DeviceID,
					"reason":     "expired",
				})
			}
		}
	}
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "gateway",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		m.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
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
