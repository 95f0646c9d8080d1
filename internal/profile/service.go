// internal/profile/service.go

package profile

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/sangamhq/sangam-backend/internal/common/logger"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidDateFormat  = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidImageFormat = errors.New("invalid image format")
	ErrImageTooLarge      = errors.New("image size exceeds limit")
)

// Service defines the profile service interface
type Service interface {
	// Profile CRUD
	CreateProfile(ctx context.Context, userID int64) (*Profile, error)
	GetMyProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error)

	// Gate actions
	SubmitInitialProfile(ctx context.Context, userID int64, req *SubmitProfileRequest) (*Profile, error)
	SkipInitialProfile(ctx context.Context, userID int64) error
	UpdateStage(ctx context.Context, userID int64, stage int, req *StageUpdateRequest) (*Profile, error)

	// Completion
	GetProfileCompletion(ctx context.Context, userID int64) (*Completion, error)

	// Photos
	UploadPhoto(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader, primary bool) (*Profile, error)
}

// service implements the profile service
type service struct {
	repo          Repository
	gate          *GateKeeper
	scorer        *Scorer
	uploadService UploadService
}

// NewService creates a new profile service
func NewService(repo Repository, gate *GateKeeper, scorer *Scorer, uploadService UploadService) Service {
	return &service{
		repo:          repo,
		gate:          gate,
		scorer:        scorer,
		uploadService: uploadService,
	}
}

func (s *service) CreateProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.CreateProfile(ctx, userID)
}

func (s *service) GetMyProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetProfileByUserID(ctx, userID)
}

// UpdateProfile applies unconstrained field-level edits. The completion
// percentage is recomputed in the same transaction as the write.
func (s *service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	dob, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	return s.repo.UpdateProfile(ctx, userID, req, dob, s.score)
}

// SubmitInitialProfile applies the submitted fields and then opens the
// relationship gate. The flag is monotonic: re-submitting is harmless.
func (s *service) SubmitInitialProfile(ctx context.Context, userID int64, req *SubmitProfileRequest) (*Profile, error) {
	profile, err := s.UpdateProfile(ctx, userID, &req.UpdateProfileRequest)
	if err != nil {
		return nil, err
	}

	if err := s.gate.OpenGate(ctx, userID); err != nil {
		return nil, err
	}

	logger.Info("profile gate opened", "user_id", userID, "via", "submit",
		"completion", profile.CompletionPercentage)
	return profile, nil
}

// SkipInitialProfile opens the gate without a submitted profile, allowed
// only from the configured progression stage onward.
func (s *service) SkipInitialProfile(ctx context.Context, userID int64) error {
	if err := s.gate.OpenGateBySkip(ctx, userID); err != nil {
		return err
	}

	logger.Info("profile gate opened", "user_id", userID, "via", "skip")
	return nil
}

// UpdateStage is the stage-scoped edit path used before the gate opens.
func (s *service) UpdateStage(ctx context.Context, userID int64, stage int, req *StageUpdateRequest) (*Profile, error) {
	if err := s.gate.CanEditStage(ctx, userID); err != nil {
		return nil, err
	}

	profile, err := s.UpdateProfile(ctx, userID, &req.UpdateProfileRequest)
	if err != nil {
		return nil, err
	}

	if err := s.gate.AdvanceStage(ctx, userID, stage); err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *service) GetProfileCompletion(ctx context.Context, userID int64) (*Completion, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.scorer.Score(profile), nil
}

// UploadPhoto stores the image and attaches it to the profile; the media
// bucket of the scorer picks it up in the same transaction.
func (s *service) UploadPhoto(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader, primary bool) (*Profile, error) {
	if err := validateImage(header); err != nil {
		return nil, err
	}

	url, err := s.uploadService.UploadFile(ctx, file, header, "profile-photos")
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	var profile *Profile
	if primary {
		profile, err = s.repo.SetProfilePhoto(ctx, userID, url, s.score)
	} else {
		profile, err = s.repo.AddPhoto(ctx, userID, url, s.score)
	}
	if err != nil {
		// Roll the orphaned object back, best effort
		_ = s.uploadService.DeleteFile(ctx, url)
		return nil, err
	}

	return profile, nil
}

// score adapts the pure scorer to the repository's recompute hook
func (s *service) score(p *Profile) (int, bool) {
	c := s.scorer.Score(p)
	return c.Percentage, c.IsComplete
}

// Helpers

func parseDateOfBirth(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	return &parsed, nil
}

// validateImage validates an uploaded image
func validateImage(header *multipart.FileHeader) error {
	// 5MB max
	maxSize := int64(5 * 1024 * 1024)
	if header.Size > maxSize {
		return ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowedExts := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
	}

	if !allowedExts[ext] {
		return ErrInvalidImageFormat
	}

	return nil
}
