package model

import "errors"

// ErrQuotaDenied is returned when a user has spent the free listing and holds no grant.
var ErrQuotaDenied = errors.New("listing quota exhausted")

// Authorization records which entitlement admitted a listing.
type Authorization int

const (
	// AuthorizedByFreeListing means the user's one free listing was used.
	AuthorizedByFreeListing Authorization = iota + 1
	// AuthorizedByGrant means the one-shot unlock grant was used.
	AuthorizedByGrant
)

// String returns the authorization name used in logs.
func (a Authorization) String() string {
	switch a {
	case AuthorizedByFreeListing:
		return "free_listing"
	case AuthorizedByGrant:
		return "grant"
	default:
		return "unknown"
	}
}

// Entitlement is the per-user listing quota state.
type Entitlement struct {
	HasUsedFreeListing bool `json:"has_used_free_listing"`
	CanListNext        bool `json:"can_list_next"`
	ListingsCount      int  `json:"listings_count"`
}

// Authorize reports whether a new listing may be admitted.
// It has no side effects.
func (e Entitlement) Authorize() (Authorization, error) {
	if !e.HasUsedFreeListing {
		return AuthorizedByFreeListing, nil
	}
	if e.CanListNext {
		return AuthorizedByGrant, nil
	}
	return 0, ErrQuotaDenied
}

// Consume returns the entitlement after one admitted listing.
func (e Entitlement) Consume(by Authorization) Entitlement {
	e.HasUsedFreeListing = true
	if by == AuthorizedByGrant {
		e.CanListNext = false
	}
	e.ListingsCount++
	return e
}

// Grant returns the entitlement with the one-shot unlock set.
// Granting twice is a no-op.
func (e Entitlement) Grant() Entitlement {
	e.CanListNext = true
	return e
}
