package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

const userColumns = `id, email, display_name, has_used_free_listing, can_list_next, listings_count, created_at, updated_at`

// CreateUser inserts a new user with a fresh entitlement.
// Returns created=false with the stored row when the ID is already registered.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) (*model.User, bool, error) {
	query := `
		INSERT INTO users (id, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.CreatedAt,
	))
	if err == nil {
		return created, true, nil
	}

	if isUniqueViolation(err) {
		return nil, false, ErrEmailExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	// ON CONFLICT skipped the insert: the account already exists.
	existing, err := r.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GrantNextListing sets the one-shot unlock and records the receipt in one transaction.
// Granting an already-granted user leaves the flag set and still records the receipt.
func (r *Repository) GrantNextListing(ctx context.Context, userID string, receipt *model.Payment) (*model.User, error) {
	var user *model.User

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET can_list_next = TRUE, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to set grant: %w", err)
		}

		if receipt == nil {
			return nil
		}
		return insertPayment(ctx, tx, receipt)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Entitlement.HasUsedFreeListing,
		&user.Entitlement.CanListNext,
		&user.Entitlement.ListingsCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
