package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/yaca-chat/yaca/internal/service"
	"github.com/yaca-chat/yaca/internal/transport/http/middleware"
)

type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Presence      *service.PresenceService
	Conversations *service.ConversationService
	Messages      *service.MessageService
}

// Routes mounts the REST API under /api/v1 on r.
func Routes(r *mux.Router, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users, svc.Presence)
	convHandler := NewConversationHandler(svc.Conversations, svc.Messages)
	messageHandler := NewMessageHandler(svc.Messages)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(svc.Auth))

	// Users
	protected.HandleFunc("/users/me", userHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", userHandler.UpdateMe).Methods(http.MethodPatch)
	protected.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}/presence", userHandler.Presence).Methods(http.MethodGet)

	// Conversations
	protected.HandleFunc("/conversations", convHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/conversations", convHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/conversations/{id}", convHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{id}", convHandler.Rename).Methods(http.MethodPatch)
	protected.HandleFunc("/conversations/{id}", convHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/conversations/{id}/pin", convHandler.TogglePin).Methods(http.MethodPost)
	protected.HandleFunc("/conversations/{id}/messages", convHandler.Messages).Methods(http.MethodGet)

	// Messages
	protected.HandleFunc("/messages", messageHandler.Send).Methods(http.MethodPost)
	protected.HandleFunc("/messages/{id}", messageHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/messages/{id}/copy", messageHandler.Copy).Methods(http.MethodGet)
	protected.HandleFunc("/messages/{id}", messageHandler.Edit).Methods(http.MethodPatch)
	protected.HandleFunc("/messages/{id}/reactions", messageHandler.React).Methods(http.MethodPost)
	protected.HandleFunc("/messages/{id}", messageHandler.Delete).Methods(http.MethodDelete)
}
