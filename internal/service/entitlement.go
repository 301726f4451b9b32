package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/repository"
	"github.com/oklog/ulid/v2"
)

// EntitlementTracker answers "may this user list another item" and records
// simulated unlocks. Quota is consumed by ListingStore.AdmitListing in the
// same transaction that inserts the listing.
type EntitlementTracker struct {
	users       UserStore
	unlockPrice float64
	logger      *slog.Logger
	metrics     metrics.Recorder
}

// NewEntitlementTracker creates an EntitlementTracker.
func NewEntitlementTracker(users UserStore, unlockPrice float64, logger *slog.Logger, recorder metrics.Recorder) *EntitlementTracker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EntitlementTracker{
		users:       users,
		unlockPrice: unlockPrice,
		logger:      logger.With("component", "entitlement"),
		metrics:     recorder,
	}
}

// CheckQuota returns nil if userID may submit a listing now.
func (t *EntitlementTracker) CheckQuota(ctx context.Context, userID string) error {
	user, err := t.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if _, err := user.Entitlement.Authorize(); err != nil {
		return err
	}
	return nil
}

// GrantNextListing sets the one-shot unlock for userID and records a receipt.
// Granting an already granted user leaves the entitlement unchanged.
func (t *EntitlementTracker) GrantNextListing(ctx context.Context, userID string) (*model.User, error) {
	receipt := &model.Payment{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Amount:    t.unlockPrice,
		Type:      model.PaymentTypeListing,
		CreatedAt: time.Now().UTC(),
	}

	user, err := t.users.GrantNextListing(ctx, userID, receipt)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("grant next listing: %w", err)
	}

	t.metrics.IncGrant()
	t.logger.Info("next listing unlocked", slog.String("user_id", userID))
	return user, nil
}
