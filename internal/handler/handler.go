// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/campuskart/campuskart/internal/assistant"
	"github.com/campuskart/campuskart/internal/handler/dto"
	"github.com/campuskart/campuskart/internal/middleware"
	"github.com/campuskart/campuskart/internal/moderation"
	"github.com/campuskart/campuskart/internal/service"
)

// PaymentsPath is where clients send users whose listing quota is spent.
const PaymentsPath = "/payments"

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON request body into dst. It writes the error
// response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	switch {
	case middleware.IsBodyTooLarge(err):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is required")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
	}
	return false
}

// handleServiceError maps service errors to HTTP responses. Messages for
// internal failures are generic; classifier payloads never reach the client.
func handleServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		rej  *moderation.RejectionError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", verr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid input")
	case errors.Is(err, service.ErrQuotaDenied):
		writeJSON(w, http.StatusPaymentRequired, dto.QuotaDeniedResponse{
			Error:    "free listing used; unlock your next listing to continue",
			Code:     "QUOTA_EXCEEDED",
			Redirect: PaymentsPath,
		})
	case errors.As(err, &rej):
		status, code := http.StatusUnprocessableEntity, "IMAGE_REJECTED"
		if rej.Stage == moderation.StageContraband {
			status, code = http.StatusConflict, "IMAGE_REJECTED_CONTRABAND"
		}
		writeJSON(w, status, dto.RejectionResponse{
			Error:  "image rejected: " + rej.Reason,
			Code:   code,
			Stage:  rej.Stage.String(),
			Reason: rej.Reason,
		})
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "account not found; register first")
	case errors.Is(err, service.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "LISTING_NOT_FOUND", "listing not found")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "only the seller may change this listing")
	case errors.Is(err, service.ErrEmailDomainNotAllowed):
		writeError(w, http.StatusForbidden, "EMAIL_DOMAIN_NOT_ALLOWED", "use your institutional email address")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "email is registered to another account")
	case errors.Is(err, service.ErrUploadFailed):
		writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "image upload failed, please try again")
	case errors.Is(err, service.ErrModerationFailed):
		writeError(w, http.StatusInternalServerError, "MODERATION_UNAVAILABLE", "image could not be checked, please try again")
	case errors.Is(err, assistant.ErrEmptyMessage), errors.Is(err, assistant.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, assistant.ErrUpstream), errors.Is(err, assistant.ErrNotConfigured):
		writeError(w, http.StatusBadGateway, "ASSISTANT_UNAVAILABLE", "assistant is unavailable right now")
	default:
		logger.Error("internal error",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
	}
}
