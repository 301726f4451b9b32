package dto

import (
	"time"

	"github.com/campuskart/campuskart/internal/model"
)

// CreateListingRequest is the body of POST /api/v1/listings.
// Price accepts a number or a numeric string.
type CreateListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       any    `json:"price"`
	Image       string `json:"image"`
}

// UpdateListingRequest is the body of PATCH /api/v1/listings/{id}.
type UpdateListingRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       any     `json:"price,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// SellerResponse is the seller snapshot of a listing.
type SellerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ListingResponse represents a listing in API responses.
type ListingResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Price       float64        `json:"price"`
	ImageURL    string         `json:"image_url"`
	Status      string         `json:"status"`
	Seller      SellerResponse `json:"seller"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FeedItem is the compact listing shown in the public feed.
type FeedItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedResponse is one page of the public feed.
type FeedResponse struct {
	Data       []FeedItem  `json:"data"`
	Pagination *Pagination `json:"pagination"`
}

// ToListingResponse converts a Listing model to ListingResponse DTO.
// The seller email is only included for the seller's own view.
func ToListingResponse(l *model.Listing, includeEmail bool) *ListingResponse {
	resp := &ListingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Price:       l.Price,
		ImageURL:    l.ImageURL,
		Status:      string(l.Status),
		Seller:      SellerResponse{ID: l.Seller.ID, Name: l.Seller.Name},
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if includeEmail {
		resp.Seller.Email = l.Seller.Email
	}
	return resp
}

// ToListingResponses converts listings for the seller's own view.
func ToListingResponses(listings []*model.Listing) []ListingResponse {
	out := make([]ListingResponse, len(listings))
	for i, l := range listings {
		out[i] = *ToListingResponse(l, true)
	}
	return out
}

// ToFeedResponse converts a feed page.
func ToFeedResponse(listings []*model.Listing, nextCursor string, hasMore bool) *FeedResponse {
	items := make([]FeedItem, len(listings))
	for i, l := range listings {
		items[i] = FeedItem{
			ID:        l.ID,
			Title:     l.Title,
			Category:  l.Category,
			Price:     l.Price,
			ImageURL:  l.ImageURL,
			CreatedAt: l.CreatedAt,
		}
	}
	return &FeedResponse{
		Data: items,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
