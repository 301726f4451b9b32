// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// QuotaDeniedResponse tells the client to send the user to the unlock flow.
type QuotaDeniedResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect"`
}

// RejectionResponse reports a moderation rejection.
type RejectionResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
