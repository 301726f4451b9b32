// Package model defines domain entities for the application.
package model

import "time"

// User is a registered marketplace member.
// Entitlement fields are only changed through Entitlement transitions.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Entitlement Entitlement `json:"entitlement"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Identity holds the claims supplied by the identity provider for the caller.
// Seller identity on a listing is a snapshot of these claims.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}
