package handlers

import "net/http"

type Middleware func(http.Handler) http.Handler

type Router struct {
	Auth          *AuthHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Notifications *NotificationHandler
}

// Mount registers the /api/v1 routes on mux. sendLimit may be nil.
func (rt Router) Mount(mux *http.ServeMux, auth Middleware, sendLimit Middleware) {
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }
	if sendLimit == nil {
		sendLimit = func(h http.Handler) http.Handler { return h }
	}

	// Public
	mux.HandleFunc("POST /api/v1/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", rt.Auth.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users/me", protected(rt.Auth.Me))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", protected(rt.Conversations.FindOrCreate))
	mux.Handle("GET /api/v1/conversations", protected(rt.Conversations.List))

	// Protected - Messages
	mux.Handle("POST /api/v1/messages", auth(sendLimit(http.HandlerFunc(rt.Messages.Send))))
	mux.Handle("GET /api/v1/messages/{conversationId}", protected(rt.Messages.List))

	// Protected - Notifications
	mux.Handle("GET /api/v1/notifications", protected(rt.Notifications.List))
	mux.Handle("PUT /api/v1/notifications/read-all", protected(rt.Notifications.MarkAllRead))
	mux.Handle("PUT /api/v1/notifications/{id}/read", protected(rt.Notifications.MarkRead))
}
