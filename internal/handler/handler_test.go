package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campuskart/campuskart/internal/assistant"
	"github.com/campuskart/campuskart/internal/moderation"
	"github.com/campuskart/campuskart/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || decodeBody(t, rec).Code != "NOT_FOUND" {
		t.Errorf("NotFound wrote %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	MethodNotAllowed(rec, httptest.NewRequest(http.MethodPut, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed || decodeBody(t, rec).Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("MethodNotAllowed wrote %d", rec.Code)
	}
}

func TestHandleServiceError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &service.ValidationError{Field: "price", Message: "must be greater than zero"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"quota", service.ErrQuotaDenied, http.StatusPaymentRequired, "QUOTA_EXCEEDED"},
		{"general rejection", &moderation.RejectionError{Stage: moderation.StageGeneral, Reason: "flagged: weapon_firearm (0.95)"}, http.StatusUnprocessableEntity, "IMAGE_REJECTED"},
		{"contraband rejection", &moderation.RejectionError{Stage: moderation.StageContraband, Reason: "flagged: vape (0.90)"}, http.StatusConflict, "IMAGE_REJECTED_CONTRABAND"},
		{"user missing", service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"listing missing", service.ErrListingNotFound, http.StatusNotFound, "LISTING_NOT_FOUND"},
		{"not owner", service.ErrNotOwner, http.StatusForbidden, "FORBIDDEN"},
		{"domain", service.ErrEmailDomainNotAllowed, http.StatusForbidden, "EMAIL_DOMAIN_NOT_ALLOWED"},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"upload", fmt.Errorf("%w: timeout", service.ErrUploadFailed), http.StatusInternalServerError, "UPLOAD_FAILED"},
		{"moderation down", fmt.Errorf("%w: %w", service.ErrModerationFailed, &moderation.ServiceError{Stage: moderation.StageGeneral, Err: errors.New("status=failure secret-payload")}), http.StatusInternalServerError, "MODERATION_UNAVAILABLE"},
		{"assistant empty", assistant.ErrEmptyMessage, http.StatusBadRequest, "INVALID_INPUT"},
		{"assistant upstream", assistant.ErrUpstream, http.StatusBadGateway, "ASSISTANT_UNAVAILABLE"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)

			handleServiceError(discardLogger(), rec, req, tc.err)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			raw := rec.Body.String()
			if strings.Contains(raw, "secret-payload") || strings.Contains(raw, "pq:") {
				t.Errorf("internal detail leaked: %s", raw)
			}
			body := decodeBody(t, rec)
			if body.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tc.wantCode)
			}
		})
	}
}

func TestHandleServiceError_Bodies(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(discardLogger(), rec, httptest.NewRequest(http.MethodPost, "/", nil), service.ErrQuotaDenied)
	if body := decodeBody(t, rec); body.Redirect != PaymentsPath {
		t.Errorf("redirect = %q, want %q", body.Redirect, PaymentsPath)
	}

	rec = httptest.NewRecorder()
	rej := &moderation.RejectionError{Stage: moderation.StageGeneral, Reason: "flagged: weapon_firearm (0.95)"}
	handleServiceError(discardLogger(), rec, httptest.NewRequest(http.MethodPost, "/", nil), rej)
	body := decodeBody(t, rec)
	if body.Stage != "general" || !strings.Contains(body.Error, "weapon_firearm") {
		t.Errorf("unexpected rejection body: %+v", body)
	}

	rec = httptest.NewRecorder()
	verr := &service.ValidationError{Field: "price", Message: "must be greater than zero"}
	handleServiceError(discardLogger(), rec, httptest.NewRequest(http.MethodPost, "/", nil), verr)
	if body := decodeBody(t, rec); body.Error != "price must be greater than zero" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"message":"hi"}`, 0, true, http.StatusOK},
		{"empty", ``, 0, false, http.StatusBadRequest},
		{"malformed", `{"message":`, 0, false, http.StatusBadRequest},
		{"too large", `{"message":"` + strings.Repeat("a", 64) + `"}`, 16, false, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.limit > 0 {
				req.Body = http.MaxBytesReader(rec, req.Body, tc.limit)
			}

			var dst struct {
				Message string `json:"message"`
			}
			ok := decodeJSON(rec, req, &dst)
			if ok != tc.wantOK {
				t.Fatalf("decodeJSON() = %v, want %v", ok, tc.wantOK)
			}
			if !ok && rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
