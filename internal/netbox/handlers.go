package netbox

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/connector"
	"github.com/netcmd/netcmd/pkg/plugin"
)

// Routes implements plugin.HTTPProvider. Devices are exposed read-only;
// netcmd never writes back to NetBox.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/devices/{id}", Handler: m.handleGetDevice},
		{Method: "POST", Path: "/devices/{id}/ping", Handler: m.handlePingDevice},
	}
}

func (m *Module) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		netboxWriteError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	device, err := m.DeviceByID(r.Context(), id)
	if err != nil {
		m.logger.Debug("device lookup failed", zap.Int("device_id", id), zap.Error(err))
		netboxWriteError(w, http.StatusNotFound, "device not found")
		return
	}
	netboxWriteJSON(w, http.StatusOK, device)
}

func (m *Module) handlePingDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		netboxWriteError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	device, err := m.DeviceByID(r.Context(), id)
	if err != nil {
		netboxWriteError(w, http.StatusNotFound, "device not found")
		return
	}

	target := device.ManagementAddr()
	if target == "" {
		netboxWriteError(w, http.StatusBadRequest, "device has no management address")
		return
	}

	result, err := connector.Ping(r.Context(), target, m.cfg.PingCount, m.cfg.PingTimeout, m.logger)
	if err != nil {
		m.logger.Warn("ping failed", zap.String("target", target), zap.Error(err))
		netboxWriteError(w, http.StatusBadGateway, "ping failed")
		return
	}
	netboxWriteJSON(w, http.StatusOK, result)
}

func netboxWriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func netboxWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://netcmd.dev/problems/inventory-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
