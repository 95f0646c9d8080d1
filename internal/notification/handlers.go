// internal/notification/handlers.go

package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sangamhq/sangam-backend/internal/common/utils"
)

// Handlers contains the HTTP handlers for notifications
type Handlers struct {
	service Service
	hub     *Hub
}

// NewHandlers creates new notification handlers
func NewHandlers(service Service, hub *Hub) *Handlers {
	return &Handlers{service: service, hub: hub}
}

// GetNotifications handles GET /api/v1/notifications
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	unreadOnly := r.URL.Query().Get("unread") == "true"

	response, err := h.service.GetNotifications(r.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithData(w, http.StatusOK, response)
}

// MarkAsRead handles POST /api/v1/notifications/{id}/read
func (h *Handlers) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	notificationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.service.MarkAsRead(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Notification marked as read")
}

// MarkAllAsRead handles POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.MarkAllAsRead(r.Context(), userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "All notifications marked as read")
}

// Stream handles GET /api/v1/ws/notifications
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.hub.ServeWS(w, r, userID)
}
