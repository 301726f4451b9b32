package dto

import (
	"time"

	"github.com/campuskart/campuskart/internal/model"
)

// AccountResponse is a user's profile and listing entitlement.
type AccountResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	Entitlement model.Entitlement `json:"entitlement"`
	CreatedAt   time.Time         `json:"created_at"`
}

// UnlockResponse is returned after a simulated unlock.
type UnlockResponse struct {
	Entitlement model.Entitlement `json:"entitlement"`
	Message     string            `json:"message"`
}

// DashboardResponse is the caller's profile and every listing they created.
type DashboardResponse struct {
	User     DashboardUser     `json:"user"`
	Listings []ListingResponse `json:"listings"`
}

// DashboardUser is the identity shown on the dashboard.
type DashboardUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PaymentResponse is one simulated unlock receipt.
type PaymentResponse struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminUserResponse is the operator view of an account.
type AdminUserResponse struct {
	AccountResponse
	Payments []PaymentResponse `json:"payments"`
}

// AskRequest is the body of POST /api/v1/assistant/ask.
type AskRequest struct {
	Message string `json:"message"`
}

// AskResponse carries the assistant's answer.
type AskResponse struct {
	Answer string `json:"answer"`
}

// CreateAPIKeyRequest is the body of POST /api/v1/admin/keys.
type CreateAPIKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// CreateAPIKeyResponse includes the plaintext key, shown once.
type CreateAPIKeyResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAccountResponse converts a User model.
func ToAccountResponse(u *model.User) *AccountResponse {
	return &AccountResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Entitlement: u.Entitlement,
		CreatedAt:   u.CreatedAt,
	}
}

// ToPaymentResponses converts unlock receipts.
func ToPaymentResponses(payments []*model.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = PaymentResponse{ID: p.ID, Amount: p.Amount, Type: string(p.Type), CreatedAt: p.CreatedAt}
	}
	return out
}
