// internal/profile/routes.go

package profile

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers profile routes on the authenticated subrouter
func RegisterRoutes(router *mux.Router, handlers *Handlers, authMiddleware func(http.Handler) http.Handler) {
	profileRouter := router.PathPrefix("/profile").Subrouter()
	profileRouter.Use(authMiddleware)

	profileRouter.HandleFunc("", handlers.GetMyProfile).Methods("GET")
	profileRouter.HandleFunc("", handlers.UpdateProfile).Methods("PUT")
	profileRouter.HandleFunc("/submit", handlers.SubmitProfile).Methods("POST")
	profileRouter.HandleFunc("/skip", handlers.SkipProfile).Methods("POST")
	profileRouter.HandleFunc("/stage/{stage:[0-9]+}", handlers.UpdateStage).Methods("PUT")
	profileRouter.HandleFunc("/completion", handlers.GetCompletion).Methods("GET")
	profileRouter.HandleFunc("/photos", handlers.UploadPhoto).Methods("POST")
}
