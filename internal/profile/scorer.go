// internal/profile/scorer.go
// Pure profile-completion scoring. No I/O: the same function gates actions
// and renders the completion endpoint, so it must stay side-effect-free.

package profile

import (
	"math"
)

// DefaultCompletionThreshold is the percentage at which a profile counts
// as complete.
const DefaultCompletionThreshold = 80

// bucketWeight is the share of the total score each bucket carries.
const bucketWeight = 25.0

// scoredField pairs a field name with its emptiness predicate
type scoredField struct {
	name  string
	empty func(*Profile) bool
}

// bucket groups fields under one weight and one importance tag
type bucket struct {
	name       string
	importance FieldImportance
	fields     []scoredField
}

// Scorer computes completion percentages from profile records
type Scorer struct {
	threshold int
	buckets   []bucket
}

// NewScorer builds a scorer with the given completion threshold.
// A threshold outside (0,100] falls back to the default.
func NewScorer(threshold int) *Scorer {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultCompletionThreshold
	}
	return &Scorer{threshold: threshold, buckets: scoringBuckets()}
}

// Score computes the completion percentage, the completeness flag, and the
// list of empty fields in bucket iteration order.
func (s *Scorer) Score(p *Profile) *Completion {
	c := &Completion{MissingFields: []FieldGap{}}
	if p == nil {
		return c
	}

	var total float64
	for _, b := range s.buckets {
		filled := 0
		for _, f := range b.fields {
			if f.empty(p) {
				c.MissingFields = append(c.MissingFields, FieldGap{
					Field:      f.name,
					Bucket:     b.name,
					Importance: b.importance,
				})
			} else {
				filled++
			}
		}
		total += float64(filled) / float64(len(b.fields)) * bucketWeight
	}

	c.Percentage = clamp(int(math.Round(total)), 0, 100)
	c.IsComplete = c.Percentage >= s.threshold
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Emptiness predicates. A field is empty when nil, the empty string, or an
// empty slice.

func emptyStr(get func(*Profile) *string) func(*Profile) bool {
	return func(p *Profile) bool {
		v := get(p)
		return v == nil || *v == ""
	}
}

func emptyInt(get func(*Profile) *int) func(*Profile) bool {
	return func(p *Profile) bool { return get(p) == nil }
}

// scoringBuckets defines the canonical four-bucket weighting scheme.
// Bucket composition is part of the scoring contract: tests pin the basic
// bucket at 5 fields and the lifestyle bucket at 8.
func scoringBuckets() []bucket {
	return []bucket{
		{
			name:       "basic",
			importance: ImportanceRequired,
			fields: []scoredField{
				{"marital_status", emptyStr(func(p *Profile) *string { return p.MaritalStatus })},
				{"religion", emptyStr(func(p *Profile) *string { return p.Religion })},
				{"mother_tongue", emptyStr(func(p *Profile) *string { return p.MotherTongue })},
				{"date_of_birth", func(p *Profile) bool { return p.DateOfBirth == nil }},
				{"gender", emptyStr(func(p *Profile) *string { return p.Gender })},
			},
		},
		{
			name:       "personal",
			importance: ImportanceImportant,
			fields: []scoredField{
				{"height_cm", emptyInt(func(p *Profile) *int { return p.HeightCM })},
				{"education", emptyStr(func(p *Profile) *string { return p.Education })},
				{"occupation", emptyStr(func(p *Profile) *string { return p.Occupation })},
				{"annual_income", emptyStr(func(p *Profile) *string { return p.AnnualIncome })},
				{"city", emptyStr(func(p *Profile) *string { return p.City })},
				{"state", emptyStr(func(p *Profile) *string { return p.State })},
				{"country", emptyStr(func(p *Profile) *string { return p.Country })},
				{"about", emptyStr(func(p *Profile) *string { return p.About })},
				{"complexion", emptyStr(func(p *Profile) *string { return p.Complexion })},
				{"body_type", emptyStr(func(p *Profile) *string { return p.BodyType })},
			},
		},
		{
			name:       "lifestyle",
			importance: ImportanceImportant,
			fields: []scoredField{
				{"diet", emptyStr(func(p *Profile) *string { return p.Diet })},
				{"smoking", emptyStr(func(p *Profile) *string { return p.Smoking })},
				{"drinking", emptyStr(func(p *Profile) *string { return p.Drinking })},
				{"hobbies", func(p *Profile) bool { return len(p.Hobbies) == 0 }},
				{"family_type", emptyStr(func(p *Profile) *string { return p.FamilyType })},
				// The age range counts as one field: both bounds must be set
				{"partner_age_range", func(p *Profile) bool { return p.PartnerMinAge == nil || p.PartnerMaxAge == nil }},
				{"partner_religion", emptyStr(func(p *Profile) *string { return p.PartnerReligion })},
				{"partner_location", emptyStr(func(p *Profile) *string { return p.PartnerLocation })},
			},
		},
		{
			name:       "media",
			importance: ImportanceOptional,
			fields: []scoredField{
				{"profile_photo", emptyStr(func(p *Profile) *string { return p.ProfilePhoto })},
				{"cover_photo", emptyStr(func(p *Profile) *string { return p.CoverPhoto })},
				{"photos", func(p *Profile) bool { return len(p.Photos) == 0 }},
				{"video_intro", emptyStr(func(p *Profile) *string { return p.VideoIntroURL })},
			},
		},
	}
}
