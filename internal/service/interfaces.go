package service

import (
	"context"

	"github.com/campuskart/campuskart/internal/cleanup"
	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/moderation"
	"github.com/campuskart/campuskart/internal/repository"
)

// ListingStore persists listings. *repository.Repository satisfies it.
type ListingStore interface {
	AdmitListing(ctx context.Context, listing *model.Listing) (model.Authorization, error)
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
	ListFeed(ctx context.Context, filter repository.FeedFilter, cursor string, limit int) ([]*model.Listing, string, error)
	ListListingsBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error)
	UpdateListingStatus(ctx context.Context, id string, status model.ListingStatus) (*model.Listing, error)
	UpdateListing(ctx context.Context, listing *model.Listing) (*model.Listing, error)
}

// UserStore persists users and their entitlements.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, bool, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GrantNextListing(ctx context.Context, userID string, receipt *model.Payment) (*model.User, error)
	ListPaymentsByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error)
}

// ListingCache caches public listing detail.
type ListingCache interface {
	Get(ctx context.Context, id string) (*model.Listing, error)
	Set(ctx context.Context, listing *model.Listing) error
	SetNotFound(ctx context.Context, id string) error
	Invalidate(ctx context.Context, id string) error
}

// ImageUploader stores listing images.
type ImageUploader interface {
	Upload(ctx context.Context, listingID string, img *imagestore.Image) (*imagestore.Uploaded, error)
}

// Moderator screens an uploaded image.
type Moderator interface {
	Moderate(ctx context.Context, imageURL string) (moderation.Verdict, error)
}

// OrphanDiscarder removes images no listing references.
type OrphanDiscarder interface {
	Discard(ctx context.Context, o cleanup.Orphan)
}
