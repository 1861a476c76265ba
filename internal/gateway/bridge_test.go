package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/testutil"
	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/roles"
)

type fakeValidator struct {
	claims *TokenClaims
	err    error
}

func (f *fakeValidator) ValidateAccessToken(string) (*TokenClaims, error) {
	return f.claims, f.err
}

type fakeInventory struct {
	device *models.Device
	err    error
}

func (f *fakeInventory) DeviceByID(context.Context, int) (*models.Device, error) {
	return f.device, f.err
}

func (f *fakeInventory) SiteVLANs(context.Context, int) ([]models.VLAN, error) {
	return nil, nil
}

type fakeResolver struct{}

func (fakeResolver) ResolveForDevice(context.Context, string, string, *models.Device) (*roles.DeviceCredentials, error) {
	return nil, errors.New("not used in these tests")
}

func (fakeResolver) MarkUsed(context.Context, string) error { return nil }

func newTestBridge(validator TokenValidator, inventory roles.InventoryProvider) *SSHBridge {
	m := &Module{
		logger:      zap.NewNop(),
		cfg:         DefaultConfig(),
		sessions:    NewSessionManager(10),
		tokens:      validator,
		inventory:   inventory,
		credentials: fakeResolver{},
	}
	return &SSHBridge{module: m, logger: zap.NewNop()}
}

func doTerminalRequest(t *testing.T, bridge *SSHBridge, url string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{device_id}", bridge.HandleTerminal)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHandleTerminalMissingToken(t *testing.T) {
	bridge := newTestBridge(&fakeValidator{}, &fakeInventory{})
	rec := doTerminalRequest(t, bridge, "/ws/42")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleTerminalInvalidToken(t *testing.T) {
	bridge := newTestBridge(&fakeValidator{err: errors.New("expired")}, &fakeInventory{})
	rec := doTerminalRequest(t, bridge, "/ws/42?token=bad")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleTerminalUnknownDevice(t *testing.T) {
	bridge := newTestBridge(
		&fakeValidator{claims: &TokenClaims{UserID: "u1"}},
		&fakeInventory{err: errors.New("not found")},
	)
	rec := doTerminalRequest(t, bridge, "/ws/42?token=ok")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleTerminalNoManagementAddress(t *testing.T) {
	unreachable := testutil.NewDevice(testutil.WithoutAddresses())
	bridge := newTestBridge(
		&fakeValidator{claims: &TokenClaims{UserID: "u1"}},
		&fakeInventory{device: &unreachable},
	)
	rec := doTerminalRequest(t, bridge, "/ws/42?token=ok")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTerminalSessionLimit(t *testing.T) {
	device := testutil.NewDevice()
	bridge := newTestBridge(
		&fakeValidator{claims: &TokenClaims{UserID: "u1"}},
		&fakeInventory{device: &device},
	)
	bridge.module.cfg.MaxSessions = 0

	rec := doTerminalRequest(t, bridge, "/ws/42?token=ok")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
