package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/auth"
	"github.com/netcmd/netcmd/pkg/plugin"
)

// ConnectivityTester verifies that resolved credentials actually work
// against a host, without running a command.
type ConnectivityTester interface {
	Test(ctx context.Context, host string, port int, username, password string) error
}

// Handler exposes the vault HTTP API. All endpoints operate on the
// authenticated user's own credential sets; there is no cross-user
// visibility, not even for admins.
type Handler struct {
	service *Service
	logger  *zap.Logger
	tester  ConnectivityTester
}

// NewHandler creates the vault HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// SetConnectivityTester wires the SSH connectivity check. Optional; the
// test endpoint returns 503 until it is set.
func (h *Handler) SetConnectivityTester(t ConnectivityTester) {
	h.tester = t
}

// Routes returns the vault module's routes, mounted under /api/v1/vault.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/credentials", Handler: h.list},
		{Method: "POST", Path: "/credentials", Handler: h.create},
		{Method: "GET", Path: "/credentials/{id}", Handler: h.get},
		{Method: "PUT", Path: "/credentials/{id}", Handler: h.update},
		{Method: "DELETE", Path: "/credentials/{id}", Handler: h.delete},
		{Method: "POST", Path: "/credentials/{id}/regenerate-token", Handler: h.regenerateToken},
		{Method: "POST", Path: "/credentials/test", Handler: h.testConnectivity},
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sets, err := h.service.List(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list credential sets failed", zap.Error(err))
		vaultWriteError(w, http.StatusInternalServerError, "failed to list credential sets")
		return
	}

	metas := make([]CredentialSetMeta, 0, len(sets))
	for i := range sets {
		metas = append(metas, sets[i].Meta())
	}
	vaultWriteJSON(w, http.StatusOK, metas)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cs, err := h.service.Create(r.Context(), claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	vaultWriteJSON(w, http.StatusCreated, CreateResponse{
		CredentialSetMeta: cs.Meta(),
		AccessToken:       cs.AccessToken,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cs, err := h.service.Get(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	vaultWriteJSON(w, http.StatusOK, cs.Meta())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cs, err := h.service.Update(r.Context(), r.PathValue("id"), claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	vaultWriteJSON(w, http.StatusOK, cs.Meta())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) regenerateToken(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cs, err := h.service.RegenerateToken(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	vaultWriteJSON(w, http.StatusOK, CreateResponse{
		CredentialSetMeta: cs.Meta(),
		AccessToken:       cs.AccessToken,
	})
}

// testConnectivityRequest asks the vault to dial a host with the
// credentials behind an access token.
type testConnectivityRequest struct {
	AccessToken string `json:"access_token"`
	Host        string `json:"host"`
	Port        int    `json:"port,omitempty"`
}

func (h *Handler) testConnectivity(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		vaultWriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.tester == nil {
		vaultWriteError(w, http.StatusServiceUnavailable, "connectivity testing is not available")
		return
	}

	var req testConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Host == "" {
		vaultWriteError(w, http.StatusBadRequest, "host is required")
		return
	}
	if req.Port == 0 {
		req.Port = 22
	}

	creds, err := h.service.GetCredentialsByToken(r.Context(), req.AccessToken, claims.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.tester.Test(r.Context(), req.Host, req.Port, creds.Username, creds.Password); err != nil {
		vaultWriteJSON(w, http.StatusOK, map[string]any{
			"reachable": false,
			"error":     err.Error(),
		})
		return
	}

	// The credentials demonstrably worked, record the use.
	if err := h.service.MarkUsed(r.Context(), creds.CredentialSetID); err != nil {
		h.logger.Warn("failed to record credential use", zap.Error(err))
	}
	vaultWriteJSON(w, http.StatusOK, map[string]any{"reachable": true})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var cryptoErr *CryptoError
	var validationErr ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		vaultWriteError(w, http.StatusNotFound, "credential set not found")
	case errors.Is(err, ErrInvalidToken):
		vaultWriteError(w, http.StatusNotFound, "invalid or unknown access token")
	case errors.Is(err, ErrInactive):
		vaultWriteError(w, http.StatusForbidden, "credential set is inactive")
	case errors.Is(err, ErrPlatformMismatch):
		vaultWriteError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validationErr):
		vaultWriteError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &cryptoErr):
		h.logger.Error("vault crypto failure", zap.Error(err))
		vaultWriteError(w, http.StatusInternalServerError, "credential operation failed")
	default:
		h.logger.Error("vault operation failed", zap.Error(err))
		vaultWriteError(w, http.StatusInternalServerError, "credential operation failed")
	}
}

func vaultWriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func vaultWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://netcmd.dev/problems/vault-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
