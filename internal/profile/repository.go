// internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// scoreFunc recomputes the derived completion columns from the row state
// inside the same transaction as the field write, so the stored percentage
// can never go stale.
type scoreFunc func(*Profile) (percentage int, isComplete bool)

// Repository defines the profile repository interface
type Repository interface {
	// Profile CRUD
	CreateProfile(ctx context.Context, userID int64) (*Profile, error)
	GetProfileByUserID(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest, dob *time.Time, score scoreFunc) (*Profile, error)

	// Photos
	AddPhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error)
	SetProfilePhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error)

	// Gate flags (stored on the users row)
	GetGateState(ctx context.Context, userID int64) (*GateState, error)
	SetMinimalCompletion(ctx context.Context, userID int64) error
	SetStage(ctx context.Context, userID int64, stage int) error
}

// postgresRepository implements Repository using PostgreSQL
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// CreateProfile inserts the empty 1:1 profile row at registration.
// Re-running it for an existing user returns the existing row.
func (r *postgresRepository) CreateProfile(ctx context.Context, userID int64) (*Profile, error) {
	query := `
		INSERT INTO profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return r.GetProfileByUserID(ctx, userID)
}

// GetProfileByUserID retrieves a profile by user ID
func (r *postgresRepository) GetProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `SELECT * FROM profiles WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// UpdateProfile applies the non-nil fields and recomputes the completion
// columns in the same transaction.
func (r *postgresRepository) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest, dob *time.Time, score scoreFunc) (*Profile, error) {
	setClauses, args := buildSetClauses(req, dob)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var profile Profile
	if len(setClauses) > 0 {
		args = append(args, userID)
		query := fmt.Sprintf(
			`UPDATE profiles SET %s, updated_at = CURRENT_TIMESTAMP WHERE user_id = $%d RETURNING *`,
			strings.Join(setClauses, ", "), len(args),
		)
		if err := tx.GetContext(ctx, &profile, query, args...); err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrProfileNotFound
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	} else {
		if err := tx.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE user_id = $1`, userID); err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrProfileNotFound
			}
			return nil, err
		}
	}

	if err := applyScore(ctx, tx, &profile, score); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// AddPhoto appends a photo URL and recomputes completion atomically.
func (r *postgresRepository) AddPhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error) {
	return r.photoUpdate(ctx, userID, `photos = array_append(photos, $1)`, url, score)
}

// SetProfilePhoto replaces the primary photo and recomputes completion.
func (r *postgresRepository) SetProfilePhoto(ctx context.Context, userID int64, url string, score scoreFunc) (*Profile, error) {
	return r.photoUpdate(ctx, userID, `profile_photo = NULLIF($1, '')`, url, score)
}

func (r *postgresRepository) photoUpdate(ctx context.Context, userID int64, setClause, url string, score scoreFunc) (*Profile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var profile Profile
	query := fmt.Sprintf(`UPDATE profiles SET %s, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2 RETURNING *`, setClause)
	if err := tx.GetContext(ctx, &profile, query, url, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update photo: %w", err)
	}

	if err := applyScore(ctx, tx, &profile, score); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// applyScore writes the derived completion columns back to the row
func applyScore(ctx context.Context, tx *sqlx.Tx, profile *Profile, score scoreFunc) error {
	pct, complete := score(profile)
	profile.CompletionPercentage = pct
	profile.IsComplete = complete

	_, err := tx.ExecContext(ctx,
		`UPDATE profiles SET completion_percentage = $1, is_complete = $2 WHERE id = $3`,
		pct, complete, profile.ID,
	)
	return err
}

// Gate flags

func (r *postgresRepository) GetGateState(ctx context.Context, userID int64) (*GateState, error) {
	var state GateState
	query := `SELECT id, minimal_profile_completion, profile_stage FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &state, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}

	return &state, err
}

// SetMinimalCompletion flips the gate flag to true. There is deliberately
// no way to flip it back.
func (r *postgresRepository) SetMinimalCompletion(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET minimal_profile_completion = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		userID,
	)
	return err
}

func (r *postgresRepository) SetStage(ctx context.Context, userID int64, stage int) error {
	// GREATEST keeps the stage monotonic under concurrent advances
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_stage = GREATEST(profile_stage, $1), updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		stage, userID,
	)
	return err
}

// buildSetClauses turns the non-nil request fields into SET clauses
func buildSetClauses(req *UpdateProfileRequest, dob *time.Time) ([]string, []interface{}) {
	var setClauses []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.MaritalStatus != nil {
		add("marital_status", nullable(*req.MaritalStatus))
	}
	if req.Religion != nil {
		add("religion", nullable(*req.Religion))
	}
	if req.MotherTongue != nil {
		add("mother_tongue", nullable(*req.MotherTongue))
	}
	if dob != nil {
		add("date_of_birth", *dob)
	}
	if req.Gender != nil {
		add("gender", nullable(*req.Gender))
	}
	if req.HeightCM != nil {
		add("height_cm", *req.HeightCM)
	}
	if req.Education != nil {
		add("education", nullable(*req.Education))
	}
	if req.Occupation != nil {
		add("occupation", nullable(*req.Occupation))
	}
	if req.AnnualIncome != nil {
		add("annual_income", nullable(*req.AnnualIncome))
	}
	if req.City != nil {
		add("city", nullable(*req.City))
	}
	if req.State != nil {
		add("state", nullable(*req.State))
	}
	if req.Country != nil {
		add("country", nullable(*req.Country))
	}
	if req.About != nil {
		add("about", nullable(*req.About))
	}
	if req.Complexion != nil {
		add("complexion", nullable(*req.Complexion))
	}
	if req.BodyType != nil {
		add("body_type", nullable(*req.BodyType))
	}
	if req.Diet != nil {
		add("diet", nullable(*req.Diet))
	}
	if req.Smoking != nil {
		add("smoking", nullable(*req.Smoking))
	}
	if req.Drinking != nil {
		add("drinking", nullable(*req.Drinking))
	}
	if req.Hobbies != nil {
		add("hobbies", pq.Array(req.Hobbies))
	}
	if req.FamilyType != nil {
		add("family_type", nullable(*req.FamilyType))
	}
	if req.PartnerMinAge != nil {
		add("partner_min_age", *req.PartnerMinAge)
	}
	if req.PartnerMaxAge != nil {
		add("partner_max_age", *req.PartnerMaxAge)
	}
	if req.PartnerReligion != nil {
		add("partner_religion", nullable(*req.PartnerReligion))
	}
	if req.PartnerLocation != nil {
		add("partner_location", nullable(*req.PartnerLocation))
	}
	if req.VideoIntroURL != nil {
		add("video_intro_url", nullable(*req.VideoIntroURL))
	}
	if req.IsPublic != nil {
		add("is_public", *req.IsPublic)
	}

	return setClauses, args
}

// nullable maps an empty string to SQL NULL so cleared fields read back as
// empty for the scorer
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
