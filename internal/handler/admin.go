package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/handler/dto"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/service"
)

// KeyManager issues and revokes operator API keys.
type KeyManager interface {
	Create(ctx context.Context, name string, scopes []string) (*model.APIKey, string, error)
	Revoke(ctx context.Context, id string) error
}

// AdminHandler provides operator endpoints, authenticated by API key.
type AdminHandler struct {
	accounts AccountService
	granter  Granter
	keys     KeyManager
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts AccountService, granter Granter, keys KeyManager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		granter:  granter,
		keys:     keys,
		logger:   logger,
	}
}

// GetUser handles GET /api/v1/admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	payments, err := h.accounts.Payments(r.Context(), userID, 20)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AdminUserResponse{
		AccountResponse: *dto.ToAccountResponse(user),
		Payments:        dto.ToPaymentResponses(payments),
	})
}

// GrantUser handles POST /api/v1/admin/users/{id}/grant.
func (h *AdminHandler) GrantUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.granter.GrantNextListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("admin grant",
		slog.String("user_id", user.ID),
		slog.String("key_id", auth.KeyIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, dto.ToAccountResponse(user))
}

// CreateKey handles POST /api/v1/admin/keys.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key, plaintext, err := h.keys.Create(r.Context(), req.Name, req.Scopes)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateAPIKeyResponse{
		ID:        key.ID,
		Key:       plaintext,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	})
}

// RevokeKey handles DELETE /api/v1/admin/keys/{id}.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == auth.KeyIDFromContext(r.Context()) {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "a key cannot revoke itself")
		return
	}

	if err := h.keys.Revoke(r.Context(), keyID); err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
			return
		}
		handleServiceError(h.logger, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
