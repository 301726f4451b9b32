package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campuskart/campuskart/internal/cache"
	"github.com/campuskart/campuskart/internal/cleanup"
	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/repository"
	"github.com/oklog/ulid/v2"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
	maxQueryLength   = 100

	// DefaultSellerName is shown for sellers without a display name.
	DefaultSellerName = "CampusKart User"
)

// ListingConfig tunes the listing pipeline.
type ListingConfig struct {
	MaxImageBytes int64
	// ModerateEdits screens replacement images on update.
	ModerateEdits bool
}

// ListingDeps are the collaborators of ListingService.
type ListingDeps struct {
	Listings  ListingStore
	Quota     *EntitlementTracker
	Uploader  ImageUploader
	Moderator Moderator
	Orphans   OrphanDiscarder
	Cache     ListingCache // optional
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// ListingService runs the listing admission pipeline and listing reads.
type ListingService struct {
	listings  ListingStore
	quota     *EntitlementTracker
	uploader  ImageUploader
	moderator Moderator
	orphans   OrphanDiscarder
	cache     ListingCache
	cfg       ListingConfig
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewListingService creates a ListingService.
func NewListingService(deps ListingDeps, cfg ListingConfig) *ListingService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	return &ListingService{
		listings:  deps.Listings,
		quota:     deps.Quota,
		uploader:  deps.Uploader,
		moderator: deps.Moderator,
		orphans:   deps.Orphans,
		cache:     deps.Cache,
		cfg:       cfg,
		logger:    deps.Logger.With("component", "listing"),
		metrics:   deps.Metrics,
	}
}

// SubmitListingInput is a new listing as received from the client.
// Price may be a number or a numeric string.
type SubmitListingInput struct {
	Title       string
	Description string
	Category    string
	Price       any
	Image       string
}

// Submit validates, screens and persists a new listing.
//
// Steps run strictly in order: validation, quota check, image upload,
// moderation, admission. A failure at any step stops the pipeline; an image
// uploaded before a later failure is discarded.
func (s *ListingService) Submit(ctx context.Context, id model.Identity, input SubmitListingInput) (*model.Listing, error) {
	outcome := metrics.OutcomeError
	defer func() { s.metrics.IncListingSubmission(outcome) }()

	title, err := validateTitle(input.Title)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}
	description, err := validateDescription(input.Description)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}
	category, err := validateCategory(input.Category)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}
	price, err := ParsePrice(input.Price)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}
	img, err := validateImage(input.Image, s.cfg.MaxImageBytes)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}

	if err := s.quota.CheckQuota(ctx, id.UserID); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			outcome = metrics.OutcomeUserNotFound
		case errors.Is(err, ErrQuotaDenied):
			outcome = metrics.OutcomeQuotaDenied
		}
		return nil, err
	}

	listingID := ulid.Make().String()

	uploaded, err := s.uploader.Upload(ctx, listingID, img)
	if err != nil {
		outcome = metrics.OutcomeUploadFailed
		return nil, err
	}

	if err := s.screen(ctx, listingID, uploaded); err != nil {
		if errors.Is(err, ErrModerationFailed) {
			outcome = metrics.OutcomeModerationError
		} else {
			outcome = metrics.OutcomeRejected
		}
		return nil, err
	}

	now := time.Now().UTC()
	listing := &model.Listing{
		ID:          listingID,
		Title:       title,
		Description: description,
		Category:    category,
		Price:       price,
		ImageURL:    uploaded.URL,
		ImageKey:    uploaded.Key,
		Status:      model.ListingStatusActive,
		Seller:      sellerSnapshot(id),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	by, err := s.listings.AdmitListing(ctx, listing)
	if err != nil {
		s.discard(ctx, listingID, uploaded.Key, "admission_failed")
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			outcome = metrics.OutcomeUserNotFound
			return nil, ErrUserNotFound
		case errors.Is(err, model.ErrQuotaDenied):
			outcome = metrics.OutcomeQuotaDenied
			return nil, ErrQuotaDenied
		}
		return nil, fmt.Errorf("admit listing: %w", err)
	}

	outcome = metrics.OutcomeAdmitted
	s.logger.Info("listing admitted",
		slog.String("listing_id", listing.ID),
		slog.String("seller_id", listing.Seller.ID),
		slog.String("authorized_by", by.String()),
	)
	return listing, nil
}

// screen moderates an uploaded image and discards it unless it is safe.
func (s *ListingService) screen(ctx context.Context, listingID string, uploaded *imagestore.Uploaded) error {
	verdict, err := s.moderator.Moderate(ctx, uploaded.URL)
	if err != nil {
		s.discard(ctx, listingID, uploaded.Key, "moderation_error")
		return fmt.Errorf("%w: %w", ErrModerationFailed, err)
	}
	if !verdict.Safe {
		s.discard(ctx, listingID, uploaded.Key, "rejected")
		return verdict.Err()
	}
	return nil
}

func (s *ListingService) discard(ctx context.Context, listingID, key, reason string) {
	s.orphans.Discard(ctx, cleanup.Orphan{
		Key:       key,
		ListingID: listingID,
		Reason:    reason,
		QueuedAt:  time.Now().UnixMilli(),
	})
}

func sellerSnapshot(id model.Identity) model.Seller {
	name := strings.TrimSpace(id.DisplayName)
	if name == "" {
		name = DefaultSellerName
	}
	return model.Seller{ID: id.UserID, Name: name, Email: id.Email}
}

// Get returns a listing by ID through the listing cache.
func (s *ListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	if s.cache != nil {
		listing, err := s.cache.Get(ctx, id)
		switch {
		case err == nil:
			s.metrics.IncListingCacheHit()
			return listing, nil
		case errors.Is(err, cache.ErrCachedNotFound):
			s.metrics.IncListingCacheHit()
			return nil, ErrListingNotFound
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncListingCacheMiss()
		default:
			s.logger.Warn("listing cache read failed", slog.String("error", err.Error()))
		}
	}

	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNotFound(ctx, id)
			}
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, listing); err != nil {
			s.logger.Warn("listing cache write failed", slog.String("error", err.Error()))
		}
	}
	return listing, nil
}

// FeedInput selects a page of the public feed.
type FeedInput struct {
	Category string
	Query    string
	Cursor   string
	Limit    int
}

// FeedOutput is one page of active listings, newest first.
type FeedOutput struct {
	Listings   []*model.Listing
	NextCursor string
	HasMore    bool
}

// Feed returns active listings. An empty or "all" category means every category.
func (s *ListingService) Feed(ctx context.Context, input FeedInput) (*FeedOutput, error) {
	if input.Limit <= 0 || input.Limit > maxFeedLimit {
		input.Limit = defaultFeedLimit
	}

	var filter repository.FeedFilter
	if c := strings.TrimSpace(input.Category); c != "" && !strings.EqualFold(c, "all") {
		category, ok := model.NormalizeCategory(c)
		if !ok {
			return nil, invalid("category", "is not a known category")
		}
		filter.Category = category
	}
	filter.Query = strings.TrimSpace(input.Query)
	if len(filter.Query) > maxQueryLength {
		return nil, invalid("q", "is too long")
	}

	listings, next, err := s.listings.ListFeed(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, invalid("cursor", "is invalid")
		}
		return nil, err
	}

	return &FeedOutput{
		Listings:   listings,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// ListBySeller returns every listing of sellerID, any status.
func (s *ListingService) ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error) {
	return s.listings.ListListingsBySeller(ctx, sellerID)
}

// ToggleStatus flips a listing between active and sold. Only the seller may do it.
func (s *ListingService) ToggleStatus(ctx context.Context, actorID, id string) (*model.Listing, error) {
	listing, err := s.ownedListing(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.listings.UpdateListingStatus(ctx, id, listing.Status.Toggled())
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

// UpdateListingInput holds the fields to change. Nil fields are left as they are.
type UpdateListingInput struct {
	ID          string
	Title       *string
	Description *string
	Price       any
	Image       *string
}

// Update edits a listing owned by actorID. A replacement image is uploaded and,
// when ModerateEdits is set, screened like a new submission. The previous image
// is discarded once the update is stored. An image identical to the stored one
// leaves the image untouched.
func (s *ListingService) Update(ctx context.Context, actorID string, input UpdateListingInput) (*model.Listing, error) {
	if input.Title == nil && input.Description == nil && input.Price == nil && input.Image == nil {
		return nil, invalid("body", "has no fields to update")
	}

	listing, err := s.ownedListing(ctx, actorID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if listing.Title, err = validateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		if listing.Description, err = validateDescription(*input.Description); err != nil {
			return nil, err
		}
	}
	if input.Price != nil {
		if listing.Price, err = ParsePrice(input.Price); err != nil {
			return nil, err
		}
	}

	oldKey := listing.ImageKey
	var img *imagestore.Image
	if input.Image != nil {
		if img, err = validateImage(*input.Image, s.cfg.MaxImageBytes); err != nil {
			return nil, err
		}
		// The stored image resent maps to the live key, which is already admitted.
		if imagestore.ObjectKey(listing.ID, img) == oldKey {
			img = nil
		}
	}

	var uploaded *imagestore.Uploaded
	if img != nil {
		if uploaded, err = s.uploader.Upload(ctx, listing.ID, img); err != nil {
			return nil, err
		}
		if s.cfg.ModerateEdits {
			if err := s.screen(ctx, listing.ID, uploaded); err != nil {
				return nil, err
			}
		}
		listing.ImageURL = uploaded.URL
		listing.ImageKey = uploaded.Key
	}

	updated, err := s.listings.UpdateListing(ctx, listing)
	if err != nil {
		if uploaded != nil && uploaded.Key != oldKey {
			s.discard(ctx, listing.ID, uploaded.Key, "update_failed")
		}
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("update listing: %w", err)
	}

	if uploaded != nil && oldKey != "" && uploaded.Key != oldKey {
		s.discard(ctx, listing.ID, oldKey, "replaced")
	}
	s.invalidate(ctx, listing.ID)
	return updated, nil
}

func (s *ListingService) ownedListing(ctx context.Context, actorID, id string) (*model.Listing, error) {
	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if !listing.IsOwnedBy(actorID) {
		return nil, ErrNotOwner
	}
	return listing, nil
}

func (s *ListingService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("listing cache invalidate failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
	}
}
