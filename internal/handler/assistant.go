package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/campuskart/campuskart/internal/handler/dto"
)

// Asker answers marketplace questions.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

// AssistantHandler serves the shopping assistant.
type AssistantHandler struct {
	asker  Asker
	logger *slog.Logger
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(asker Asker, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{asker: asker, logger: logger}
}

// Ask handles POST /api/v1/assistant/ask.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req dto.AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	answer, err := h.asker.Ask(r.Context(), req.Message)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AskResponse{Answer: answer})
}
