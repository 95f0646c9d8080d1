// internal/notification/routes.go

package notification

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers notification routes on the authenticated subrouter
func RegisterRoutes(router *mux.Router, handlers *Handlers, authMiddleware func(http.Handler) http.Handler) {
	authed := router.NewRoute().Subrouter()
	authed.Use(authMiddleware)

	authed.HandleFunc("/notifications", handlers.GetNotifications).Methods("GET")
	authed.HandleFunc("/notifications/{id:[0-9]+}/read", handlers.MarkAsRead).Methods("POST")
	authed.HandleFunc("/notifications/read-all", handlers.MarkAllAsRead).Methods("POST")
	authed.HandleFunc("/ws/notifications", handlers.Stream).Methods("GET")
}
