package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/service"
	"github.com/vedran77/chronofeed/internal/transport/http/middleware"
	"github.com/vedran77/chronofeed/pkg/validator"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.ConversationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_CONVERSATION_ID", "conversation_id is required")
		return
	}

	urls := make([]string, 0, len(input.Content.Attachments))
	for _, a := range input.Content.Attachments {
		urls = append(urls, a.URL)
	}
	if errs := validator.ValidateMessage(input.Content.Text, urls); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Append(r.Context(), userID, input.ConversationID, input.Content)
	if err != nil {
		writeServiceError(w, r, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, ok := pathID(w, r, "conversationId", "conversation")
	if !ok {
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &id
	}

	resp, err := h.messageService.ListForConversation(r.Context(), userID, convID, before, queryLimit(r))
	if err != nil {
		writeServiceError(w, r, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
