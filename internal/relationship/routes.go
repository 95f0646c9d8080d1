// internal/relationship/routes.go

package relationship

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers relationship routes on the authenticated subrouter
func RegisterRoutes(router *mux.Router, handlers *Handlers, authMiddleware func(http.Handler) http.Handler) {
	authed := router.NewRoute().Subrouter()
	authed.Use(authMiddleware)

	authed.HandleFunc("/interests", handlers.SendInterest).Methods("POST")
	authed.HandleFunc("/interests", handlers.GetInterests).Methods("GET")
	authed.HandleFunc("/interests/{id:[0-9]+}/respond", handlers.RespondToInterest).Methods("POST")
	authed.HandleFunc("/interests/{id:[0-9]+}/withdraw", handlers.WithdrawInterest).Methods("POST")

	authed.HandleFunc("/users/{id:[0-9]+}/block", handlers.BlockUser).Methods("POST")
	authed.HandleFunc("/users/{id:[0-9]+}/block", handlers.UnblockUser).Methods("DELETE")
	authed.HandleFunc("/blocks", handlers.GetBlocks).Methods("GET")

	authed.HandleFunc("/connections", handlers.GetConnections).Methods("GET")
}
