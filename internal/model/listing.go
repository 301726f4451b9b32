package model

import (
	"slices"
	"strings"
	"time"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingStatusActive ListingStatus = "active"
	ListingStatusSold   ListingStatus = "sold"
)

// IsValid checks if the status is a known value.
func (s ListingStatus) IsValid() bool {
	return s == ListingStatusActive || s == ListingStatusSold
}

// Toggled returns the opposite status.
func (s ListingStatus) Toggled() ListingStatus {
	if s == ListingStatusSold {
		return ListingStatusActive
	}
	return ListingStatusSold
}

// Categories lists the categories a listing may be filed under.
var Categories = []string{
	"Books",
	"Electronics",
	"Clothing",
	"Furniture",
	"Stationery",
	"Sports",
	"Hostel Essentials",
	"Other",
}

// NormalizeCategory returns the canonical spelling of a category, matched case-insensitively.
func NormalizeCategory(category string) (string, bool) {
	idx := slices.IndexFunc(Categories, func(c string) bool {
		return strings.EqualFold(c, strings.TrimSpace(category))
	})
	if idx < 0 {
		return "", false
	}
	return Categories[idx], true
}

// Seller is the identity snapshot taken when a listing is created.
// It is never re-synced from the identity provider.
type Seller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Listing is a sellable item created by a user.
type Listing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Price       float64       `json:"price"`
	ImageURL    string        `json:"image_url"`
	ImageKey    string        `json:"-"`
	Status      ListingStatus `json:"status"`
	Seller      Seller        `json:"seller"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsOwnedBy reports whether userID is the listing's seller.
func (l *Listing) IsOwnedBy(userID string) bool {
	return userID != "" && l.Seller.ID == userID
}

// IsActive returns true if the listing appears in the feed.
func (l *Listing) IsActive() bool {
	return l.Status == ListingStatusActive
}
