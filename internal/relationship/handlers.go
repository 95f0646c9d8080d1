// internal/relationship/handlers.go

package relationship

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sangamhq/sangam-backend/internal/common/utils"
	"github.com/sangamhq/sangam-backend/internal/profile"
)

// ProfileSetupRedirect is the hint sent with gate denials so clients can
// route the user to profile setup.
const ProfileSetupRedirect = "/profile/submit"

// Handlers contains the HTTP handlers for relationships
type Handlers struct {
	service Service
}

// NewHandlers creates new relationship handlers
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// SendInterest handles POST /api/v1/interests
func (h *Handlers) SendInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SendInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	interest, err := h.service.SendInterest(r.Context(), userID, &req)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusCreated, interest)
}

// RespondToInterest handles POST /api/v1/interests/{id}/respond
func (h *Handlers) RespondToInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	interestID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid interest ID")
		return
	}

	var req RespondInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	interest, err := h.service.RespondToInterest(r.Context(), userID, interestID, &req)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, interest)
}

// WithdrawInterest handles POST /api/v1/interests/{id}/withdraw
func (h *Handlers) WithdrawInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	interestID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid interest ID")
		return
	}

	interest, err := h.service.WithdrawInterest(r.Context(), userID, interestID)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, interest)
}

// GetInterests handles GET /api/v1/interests?box=sent|received
func (h *Handlers) GetInterests(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	box := r.URL.Query().Get("box")
	if box == "" {
		box = BoxReceived
	}
	if box != BoxSent && box != BoxReceived {
		utils.RespondWithError(w, http.StatusBadRequest, "box must be sent or received")
		return
	}

	interests, err := h.service.GetInterests(r.Context(), userID, box)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, interests)
}

// BlockUser handles POST /api/v1/users/{id}/block
func (h *Handlers) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	blockedID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	// the reason payload is optional
	var req BlockUserRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	block, err := h.service.BlockUser(r.Context(), userID, blockedID, &req)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusCreated, block)
}

// UnblockUser handles DELETE /api/v1/users/{id}/block
func (h *Handlers) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	blockedID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.UnblockUser(r.Context(), userID, blockedID); err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "User unblocked")
}

// GetBlocks handles GET /api/v1/blocks
func (h *Handlers) GetBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	blocks, err := h.service.GetBlocks(r.Context(), userID)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, blocks)
}

// GetConnections handles GET /api/v1/connections
func (h *Handlers) GetConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	connections, err := h.service.GetConnections(r.Context(), userID)
	if err != nil {
		h.respondRelationshipError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, connections)
}

// respondRelationshipError maps workflow errors to HTTP status codes
func (h *Handlers) respondRelationshipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrGateDenied):
		utils.RespondWithRedirectHint(w, http.StatusForbidden, err.Error(), ProfileSetupRedirect)
	case errors.Is(err, ErrSelfInterest), errors.Is(err, ErrSelfBlock), errors.Is(err, ErrBlockedPair):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateInterest), errors.Is(err, ErrAlreadyConnected),
		errors.Is(err, ErrAlreadyBlocked), errors.Is(err, ErrInterestNotPending):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotInterestRecipient), errors.Is(err, ErrNotInterestSender):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInterestNotFound), errors.Is(err, ErrBlockNotFound),
		errors.Is(err, profile.ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
