package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/campuskart/campuskart/internal/handler/dto"
	"github.com/campuskart/campuskart/internal/model"
)

// AccountService is the account behaviour the handlers need.
type AccountService interface {
	Register(ctx context.Context, id model.Identity) (*model.User, bool, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	Payments(ctx context.Context, userID string, limit int) ([]*model.Payment, error)
}

// Granter unlocks a user's next listing.
type Granter interface {
	GrantNextListing(ctx context.Context, userID string) (*model.User, error)
}

// AccountHandler handles sign-up, profile and the simulated unlock.
type AccountHandler struct {
	accounts AccountService
	granter  Granter
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService, granter Granter, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		granter:  granter,
		logger:   logger,
	}
}

// Register handles POST /api/v1/account.
// Returns 201 for a new account and 200 when it already exists.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	user, created, err := h.accounts.Register(r.Context(), *id)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.ToAccountResponse(user))
}

// Get handles GET /api/v1/account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.Get(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAccountResponse(user))
}

// Unlock handles POST /api/v1/payments/unlock. No money moves; the unlock
// is recorded as a receipt. Unlocking twice is harmless.
func (h *AccountHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.granter.GrantNextListing(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UnlockResponse{
		Entitlement: user.Entitlement,
		Message:     "next listing unlocked",
	})
}
