package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/service"
	"github.com/vedran77/chronofeed/internal/transport/http/middleware"
)

type ConversationHandler struct {
	convService *service.ConversationService
}

func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// FindOrCreate answers 200 with the existing or newly created conversation.
func (h *ConversationHandler) FindOrCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateConversationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.CounterpartID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_COUNTERPART_ID", "counterpart_id is required")
		return
	}

	conv, err := h.convService.FindOrCreate(r.Context(), userID, input.CounterpartID)
	if err != nil {
		writeServiceError(w, r, "find or create conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.convService.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}
