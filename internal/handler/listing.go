package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/handler/dto"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/service"
)

// ListingService is the listing behaviour the handlers need.
type ListingService interface {
	Submit(ctx context.Context, id model.Identity, input service.SubmitListingInput) (*model.Listing, error)
	Get(ctx context.Context, id string) (*model.Listing, error)
	Feed(ctx context.Context, input service.FeedInput) (*service.FeedOutput, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error)
	ToggleStatus(ctx context.Context, actorID, id string) (*model.Listing, error)
	Update(ctx context.Context, actorID string, input service.UpdateListingInput) (*model.Listing, error)
}

// ListingHandler handles HTTP requests for listing operations.
type ListingHandler struct {
	svc    ListingService
	logger *slog.Logger
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(svc ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		svc:    svc,
		logger: logger,
	}
}

// Feed handles GET /api/v1/listings.
func (h *ListingHandler) Feed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	result, err := h.svc.Feed(r.Context(), service.FeedInput{
		Category: query.Get("category"),
		Query:    query.Get("q"),
		Cursor:   query.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToFeedResponse(result.Listings, result.NextCursor, result.HasMore))
}

// Get handles GET /api/v1/listings/{id}.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	owner := listing.IsOwnedBy(auth.UserIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, dto.ToListingResponse(listing, owner))
}

// Create handles POST /api/v1/listings.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req dto.CreateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	listing, err := h.svc.Submit(r.Context(), *id, service.SubmitListingInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Image:       req.Image,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToListingResponse(listing, true))
}

// Update handles PATCH /api/v1/listings/{id}.
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req dto.UpdateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	listing, err := h.svc.Update(r.Context(), id.UserID, service.UpdateListingInput{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("listing updated",
		"listing_id", listing.ID,
		"image_replaced", req.Image != nil,
	)
	writeJSON(w, http.StatusOK, dto.ToListingResponse(listing, true))
}

// ToggleStatus handles POST /api/v1/listings/{id}/toggle-status.
func (h *ListingHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	listing, err := h.svc.ToggleStatus(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("listing status changed", "listing_id", listing.ID, "status", listing.Status)
	writeJSON(w, http.StatusOK, dto.ToListingResponse(listing, true))
}

// Dashboard handles GET /api/v1/dashboard.
func (h *ListingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	listings, err := h.svc.ListBySeller(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	name := id.DisplayName
	if name == "" {
		name = service.DefaultSellerName
	}
	writeJSON(w, http.StatusOK, dto.DashboardResponse{
		User:     dto.DashboardUser{ID: id.UserID, Name: name, Email: id.Email},
		Listings: dto.ToListingResponses(listings),
	})
}

// callerIdentity returns the verified caller or writes 401.
func callerIdentity(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return nil, false
	}
	return id, true
}
