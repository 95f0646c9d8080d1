// internal/profile/models.go

package profile

import (
	"time"

	"github.com/lib/pq"
)

// Profile is the matrimonial profile, 1:1 with a user account, created at
// registration and mutated only by the owning user. All descriptive fields
// are optional; completion is derived from how many are filled.
type Profile struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	// Basic identity / marital
	MaritalStatus *string    `json:"marital_status" db:"marital_status"`
	Religion      *string    `json:"religion" db:"religion"`
	MotherTongue  *string    `json:"mother_tongue" db:"mother_tongue"`
	DateOfBirth   *time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender        *string    `json:"gender" db:"gender"`

	// Personal / location
	HeightCM     *int    `json:"height_cm" db:"height_cm"`
	Education    *string `json:"education" db:"education"`
	Occupation   *string `json:"occupation" db:"occupation"`
	AnnualIncome *string `json:"annual_income" db:"annual_income"`
	City         *string `json:"city" db:"city"`
	State        *string `json:"state" db:"state"`
	Country      *string `json:"country" db:"country"`
	About        *string `json:"about" db:"about"`
	Complexion   *string `json:"complexion" db:"complexion"`
	BodyType     *string `json:"body_type" db:"body_type"`

	// Lifestyle / partner preference
	Diet            *string        `json:"diet" db:"diet"`
	Smoking         *string        `json:"smoking" db:"smoking"`
	Drinking        *string        `json:"drinking" db:"drinking"`
	Hobbies         pq.StringArray `json:"hobbies" db:"hobbies"`
	FamilyType      *string        `json:"family_type" db:"family_type"`
	PartnerMinAge   *int           `json:"partner_min_age" db:"partner_min_age"`
	PartnerMaxAge   *int           `json:"partner_max_age" db:"partner_max_age"`
	PartnerReligion *string        `json:"partner_religion" db:"partner_religion"`
	PartnerLocation *string        `json:"partner_location" db:"partner_location"`

	// Media / visibility
	ProfilePhoto  *string        `json:"profile_photo" db:"profile_photo"`
	CoverPhoto    *string        `json:"cover_photo" db:"cover_photo"`
	Photos        pq.StringArray `json:"photos" db:"photos"`
	VideoIntroURL *string        `json:"video_intro_url" db:"video_intro_url"`
	IsPublic      bool           `json:"is_public" db:"is_public"`

	// Derived, recomputed synchronously on every field write
	CompletionPercentage int  `json:"completion_percentage" db:"completion_percentage"`
	IsComplete           bool `json:"is_complete" db:"is_complete"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FieldImportance tags a missing field by the bucket it came from
type FieldImportance string

const (
	ImportanceRequired  FieldImportance = "required"
	ImportanceImportant FieldImportance = "important"
	ImportanceOptional  FieldImportance = "optional"
)

// FieldGap reports a single empty field in bucket iteration order
type FieldGap struct {
	Field      string          `json:"field"`
	Bucket     string          `json:"bucket"`
	Importance FieldImportance `json:"importance"`
}

// Completion is the scorer output
type Completion struct {
	Percentage    int        `json:"percentage"`
	IsComplete    bool       `json:"is_complete"`
	MissingFields []FieldGap `json:"missing_fields"`
}

// GateState is the per-user relationship eligibility snapshot
type GateState struct {
	UserID                   int64 `db:"id"`
	MinimalProfileCompletion bool  `db:"minimal_profile_completion"`
	ProfileStage             int   `db:"profile_stage"`
}

// UpdateProfileRequest is the unconstrained field-level edit payload.
// Nil fields are left untouched; pointers to empty strings clear a field.
type UpdateProfileRequest struct {
	MaritalStatus *string  `json:"marital_status" validate:"omitempty,oneof=never_married divorced widowed annulled"`
	Religion      *string  `json:"religion" validate:"omitempty,max=50"`
	MotherTongue  *string  `json:"mother_tongue" validate:"omitempty,max=50"`
	DateOfBirth   *string  `json:"date_of_birth" validate:"omitempty"`
	Gender        *string  `json:"gender" validate:"omitempty,oneof=male female other"`
	HeightCM      *int     `json:"height_cm" validate:"omitempty,min=100,max=250"`
	Education     *string  `json:"education" validate:"omitempty,max=200"`
	Occupation    *string  `json:"occupation" validate:"omitempty,max=200"`
	AnnualIncome  *string  `json:"annual_income" validate:"omitempty,max=50"`
	City          *string  `json:"city" validate:"omitempty,max=100"`
	State         *string  `json:"state" validate:"omitempty,max=100"`
	Country       *string  `json:"country" validate:"omitempty,max=100"`
	About         *string  `json:"about" validate:"omitempty,max=2000"`
	Complexion    *string  `json:"complexion" validate:"omitempty,max=50"`
	BodyType      *string  `json:"body_type" validate:"omitempty,max=50"`

	Diet            *string  `json:"diet" validate:"omitempty,oneof=vegetarian non_vegetarian eggetarian vegan"`
	Smoking         *string  `json:"smoking" validate:"omitempty,oneof=no occasionally yes"`
	Drinking        *string  `json:"drinking" validate:"omitempty,oneof=no occasionally yes"`
	Hobbies         []string `json:"hobbies" validate:"omitempty,max=15,dive,min=1,max=50"`
	FamilyType      *string  `json:"family_type" validate:"omitempty,oneof=joint nuclear other"`
	PartnerMinAge   *int     `json:"partner_min_age" validate:"omitempty,min=18,max=100"`
	PartnerMaxAge   *int     `json:"partner_max_age" validate:"omitempty,min=18,max=100"`
	PartnerReligion *string  `json:"partner_religion" validate:"omitempty,max=50"`
	PartnerLocation *string  `json:"partner_location" validate:"omitempty,max=100"`

	VideoIntroURL *string `json:"video_intro_url" validate:"omitempty,url,max=300"`
	IsPublic      *bool   `json:"is_public"`
}

// SubmitProfileRequest is the explicit "submit initial profile" action that
// opens the relationship gate. Fields are applied first, then the flag set.
type SubmitProfileRequest struct {
	UpdateProfileRequest
}

// StageUpdateRequest is a stage-scoped edit: a field payload bound to one
// progression stage. Inaccessible once the gate flag is set.
type StageUpdateRequest struct {
	UpdateProfileRequest
}
