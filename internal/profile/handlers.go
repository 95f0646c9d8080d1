// internal/profile/handlers.go

package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sangamhq/sangam-backend/internal/common/utils"
)

// Handlers contains the HTTP handlers for profiles
type Handlers struct {
	service Service
}

// NewHandlers creates new profile handlers
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// GetMyProfile handles GET /api/v1/profile
func (h *Handlers) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.service.GetMyProfile(r.Context(), userID)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// SubmitProfile handles POST /api/v1/profile/submit
func (h *Handlers) SubmitProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SubmitProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.SubmitInitialProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// SkipProfile handles POST /api/v1/profile/skip
func (h *Handlers) SkipProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.SkipInitialProfile(r.Context(), userID); err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Initial profile skipped")
}

// UpdateStage handles PUT /api/v1/profile/stage/{stage}
func (h *Handlers) UpdateStage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stage, err := strconv.Atoi(mux.Vars(r)["stage"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid stage")
		return
	}

	var req StageUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.UpdateStage(r.Context(), userID, stage, &req)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// GetCompletion handles GET /api/v1/profile/completion
func (h *Handlers) GetCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	completion, err := h.service.GetProfileCompletion(r.Context(), userID)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, completion)
}

// UploadPhoto handles POST /api/v1/profile/photos
func (h *Handlers) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// 10MB request cap; individual image size is checked by the service
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Photo file is required")
		return
	}
	defer file.Close()

	primary := r.FormValue("primary") == "true"

	profile, err := h.service.UploadPhoto(r.Context(), userID, file, header, primary)
	if err != nil {
		h.respondProfileError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// respondProfileError maps service errors to HTTP status codes
func (h *Handlers) respondProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientProgress), errors.Is(err, ErrInvalidStage),
		errors.Is(err, ErrInvalidDateFormat),
		errors.Is(err, ErrInvalidImageFormat), errors.Is(err, ErrImageTooLarge):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrStageAccessDenied):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
