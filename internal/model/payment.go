package model

import "time"

// PaymentType identifies what a simulated unlock paid for.
type PaymentType string

const (
	PaymentTypeListing PaymentType = "listing"
)

// Payment is a receipt for a simulated unlock. It is not a ledger entry.
type Payment struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Amount    float64     `json:"amount"`
	Type      PaymentType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
