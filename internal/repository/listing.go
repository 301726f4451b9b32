package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrListingNotFound is returned when no listing matches the given ID.
var ErrListingNotFound = errors.New("listing not found")

// FeedFilter narrows the public feed.
type FeedFilter struct {
	Category string
	Query    string
}

const listingColumns = `id, title, description, category, price, image_url, image_key, status,
		seller_id, seller_name, seller_email, created_at, updated_at`

// AdmitListing inserts a listing and consumes the seller's entitlement atomically.
//
// The seller row is locked for the duration of the transaction and the quota is
// re-authorized under the lock, so concurrent submissions by one user cannot both
// spend a single grant. Returns ErrUserNotFound or model.ErrQuotaDenied without
// writing anything.
func (r *Repository) AdmitListing(ctx context.Context, listing *model.Listing) (model.Authorization, error) {
	var by model.Authorization

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var ent model.Entitlement
		err := tx.QueryRow(ctx, `
			SELECT has_used_free_listing, can_list_next, listings_count
			FROM users
			WHERE id = $1
			FOR UPDATE
		`, listing.Seller.ID).Scan(&ent.HasUsedFreeListing, &ent.CanListNext, &ent.ListingsCount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		by, err = ent.Authorize()
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO listings (id, title, description, category, price, image_url, image_key, status,
				seller_id, seller_name, seller_email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			listing.ID,
			listing.Title,
			listing.Description,
			listing.Category,
			listing.Price,
			listing.ImageURL,
			listing.ImageKey,
			string(listing.Status),
			listing.Seller.ID,
			listing.Seller.Name,
			listing.Seller.Email,
			listing.CreatedAt,
			listing.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to insert listing: %w", err)
		}

		next := ent.Consume(by)
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET has_used_free_listing = $2, can_list_next = $3, listings_count = $4, updated_at = NOW()
			WHERE id = $1
		`, listing.Seller.ID, next.HasUsedFreeListing, next.CanListNext, next.ListingsCount)
		if err != nil {
			return fmt.Errorf("failed to consume entitlement: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return by, nil
}

// GetListingByID retrieves a listing regardless of status.
func (r *Repository) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing by ID: %w", err)
	}

	return listing, nil
}

// ListFeed returns a page of active listings, newest first.
func (r *Repository) ListFeed(ctx context.Context, filter FeedFilter, cursor string, limit int) ([]*model.Listing, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE status = 'active'`
	args := []any{}
	argIndex := 1

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.Query != "" {
		query += fmt.Sprintf(" AND title ILIKE $%d", argIndex)
		args = append(args, containsPattern(filter.Query))
		argIndex++
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	listings, err := r.queryListings(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list feed: %w", err)
	}

	var nextCursor string
	if len(listings) > limit {
		listings = listings[:limit]
		last := listings[len(listings)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return listings, nextCursor, nil
}

// ListListingsBySeller returns every listing a seller created, any status.
func (r *Repository) ListListingsBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC`

	listings, err := r.queryListings(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller listings: %w", err)
	}
	return listings, nil
}

// UpdateListingStatus sets a listing's status.
func (r *Repository) UpdateListingStatus(ctx context.Context, id string, status model.ListingStatus) (*model.Listing, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid listing status %q", status)
	}

	query := `
		UPDATE listings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + listingColumns

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}
	return listing, nil
}

// UpdateListing writes the mutable listing fields. Seller and status are untouched.
func (r *Repository) UpdateListing(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	query := `
		UPDATE listings
		SET title = $2, description = $3, price = $4, image_url = $5, image_key = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + listingColumns

	updated, err := scanListing(r.pool.QueryRow(ctx, query,
		listing.ID,
		listing.Title,
		listing.Description,
		listing.Price,
		listing.ImageURL,
		listing.ImageKey,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return updated, nil
}

func (r *Repository) queryListings(ctx context.Context, query string, args ...any) ([]*model.Listing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, nil
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	var status string
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Category,
		&l.Price,
		&l.ImageURL,
		&l.ImageKey,
		&status,
		&l.Seller.ID,
		&l.Seller.Name,
		&l.Seller.Email,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = model.ListingStatus(status)
	return &l, nil
}
