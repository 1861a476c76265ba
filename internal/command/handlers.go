package command

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/auth"
	"github.com/netcmd/netcmd/internal/netbox"
	"github.com/netcmd/netcmd/internal/vault"
	"github.com/netcmd/netcmd/pkg/plugin"
)

// Handler exposes the command HTTP API.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates the command HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the module's routes, mounted under /api/v1/commands.
// Command management is admin-only; reading and executing follow the
// per-command gating in the service.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: h.list},
		{Method: "POST", Path: "", Handler: h.requireAdmin(h.create)},
		{Method: "GET", Path: "/logs", Handler: h.logs},
		{Method: "GET", Path: "/{id}", Handler: h.get},
		{Method: "PUT", Path: "/{id}", Handler: h.requireAdmin(h.update)},
		{Method: "DELETE", Path: "/{id}", Handler: h.requireAdmin(h.delete)},
		{Method: "POST", Path: "/{id}/execute", Handler: h.execute},
		{Method: "POST", Path: "/{id}/bulk-execute", Handler: h.bulkExecute},
		{Method: "POST", Path: "/{id}/validate-variables", Handler: h.validateVariables},
		{Method: "GET", Path: "/{id}/variable-choices", Handler: h.variableChoices},
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	cmds, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list commands failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list commands")
		return
	}
	if cmds == nil {
		cmds = []Command{}
	}
	writeJSON(w, http.StatusOK, cmds)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.Create(r.Context(), &cmd); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cmd)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.ID = r.PathValue("id")
	if err := h.service.Update(r.Context(), &cmd); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == 0 {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	result, err := h.service.Execute(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) bulkExecute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req BulkExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.BulkExecute(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// validateVariablesRequest checks values against a device without
// executing.
type validateVariablesRequest struct {
	DeviceID int               `json:"device_id"`
	Values   map[string]string `json:"values,omitempty"`
}

func (h *Handler) validateVariables(w http.ResponseWriter, r *http.Request) {
	var req validateVariablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == 0 {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	prep, err := h.service.Validate(r.Context(), r.PathValue("id"), req.DeviceID, req.Values)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prep)
}

func (h *Handler) variableChoices(w http.ResponseWriter, r *http.Request) {
	deviceID, err := strconv.Atoi(r.URL.Query().Get("device_id"))
	if err != nil || deviceID == 0 {
		writeError(w, http.StatusBadRequest, "device_id query parameter is required")
		return
	}

	choices, err := h.service.Choices(r.Context(), r.PathValue("id"), deviceID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	filter := LogFilter{
		CommandID: r.URL.Query().Get("command_id"),
		Limit:     100,
	}
	if v := r.URL.Query().Get("device_id"); v != "" {
		filter.DeviceID, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			filter.Limit = n
		}
	}

	logs, err := h.service.Logs(r.Context(), filter)
	if err != nil {
		h.logger.Error("list command logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	if logs == nil {
		logs = []CommandLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !caller.IsAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "command not found")
	case errors.Is(err, netbox.ErrNotFound):
		writeError(w, http.StatusNotFound, "device not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrUnreachable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid or unknown credential token")
	case errors.Is(err, vault.ErrPlatformMismatch), errors.Is(err, vault.ErrInactive):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	default:
		h.logger.Error("command operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "command operation failed")
	}
}

func callerFrom(r *http.Request) (Caller, bool) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		return Caller{}, false
	}
	return Caller{
		UserID:   claims.UserID,
		Username: claims.Username,
		IsAdmin:  claims.Role == string(auth.RoleAdmin),
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://netcmd.dev/problems/command-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
