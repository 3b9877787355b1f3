package handlers

import (
	"net/http"

	"github.com/vedran77/chronofeed/internal/service"
	"github.com/vedran77/chronofeed/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List serves GET /notifications; ?unread=true restricts it to unread ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit := queryLimit(r)

	var (
		resp *service.NotificationListResponse
		err  error
	)
	if r.URL.Query().Get("unread") == "true" {
		resp, err = h.notificationService.ListUnread(r.Context(), userID, limit)
	} else {
		resp, err = h.notificationService.List(r.Context(), userID, limit)
	}
	if err != nil {
		writeServiceError(w, r, "list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, ok := pathID(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), id, userID); err != nil {
		writeServiceError(w, r, "mark notification read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	updated, err := h.notificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "mark all notifications read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}
