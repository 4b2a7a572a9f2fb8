package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/camden-git/flockregistry/apperrors"
)

// Category is the coarse life-stage/role classification of an animal
type Category string

const (
	CategoryRam   Category = "RAM"
	CategoryEwe   Category = "EWE"
	CategoryLamb  Category = "LAMB"
	CategoryOther Category = "OTHER"
)

// Sex of an animal as recorded at registration
type Sex string

const (
	SexMale    Sex = "MALE"
	SexFemale  Sex = "FEMALE"
	SexUnknown Sex = "UNKNOWN"
)

// NormalizeCategory coerces arbitrary input to a known category.
// unrecognized values deliberately become CategoryOther instead of
// being rejected; this happens here, at the construction boundary, so
// the permissive-default policy is visible rather than buried in
// validation
func NormalizeCategory(value string) Category {
	switch Category(strings.ToUpper(strings.TrimSpace(value))) {
	case CategoryRam:
		return CategoryRam
	case CategoryEwe:
		return CategoryEwe
	case CategoryLamb:
		return CategoryLamb
	default:
		return CategoryOther
	}
}

// NormalizeSex coerces arbitrary input to a known sex, defaulting to
// SexUnknown under the same policy as NormalizeCategory
func NormalizeSex(value string) Sex {
	switch Sex(strings.ToUpper(strings.TrimSpace(value))) {
	case SexMale:
		return SexMale
	case SexFemale:
		return SexFemale
	default:
		return SexUnknown
	}
}

// Animal represents one registered animal in the 'animals' table.
// Photos holds the ordered, duplicate-free list of original-derivative
// URLs owned by this record
type Animal struct {
	ID                    string                      `gorm:"primaryKey;size:36" json:"id"`
	EarTag                string                      `gorm:"uniqueIndex;not null;size:50" json:"earTag"`
	BirthDate             DateOnly                    `gorm:"not null;index" json:"birthDate"`
	MotherTag             string                      `gorm:"size:50" json:"motherTag"`
	FatherTag             string                      `gorm:"size:50" json:"fatherTag"`
	Breed                 string                      `gorm:"not null;size:100;index" json:"breed"`
	Category              Category                    `gorm:"not null;size:10;index" json:"category"`
	Sex                   Sex                         `gorm:"not null;size:10" json:"sex"`
	Note                  string                      `json:"note"`
	Photos                datatypes.JSONSlice[string] `json:"photos"`
	RegisteredAt          time.Time                   `gorm:"not null" json:"registeredAt"`
	Biometrics            datatypes.JSONMap           `json:"biometrics,omitempty"`
	ReferencePhotos       datatypes.JSONSlice[string] `json:"referencePhotos"`
	RecognitionHistory    datatypes.JSONMap           `json:"recognitionHistory"`
	RecognitionAccuracy   float64                     `gorm:"not null;default:0" json:"recognitionAccuracy"`
	TrainedForRecognition bool                        `gorm:"not null;default:false;index" json:"trainedForRecognition"`
	CreatedAt             time.Time                   `json:"createdAt"`
	UpdatedAt             time.Time                   `json:"updatedAt"`
}

// TableName explicitly sets the table name for GORM.
func (Animal) TableName() string {
	return "animals"
}

// BeforeCreate assigns system-maintained fields. the ID is generated
// here and never changes afterwards
func (a *Animal) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RegisteredAt.IsZero() {
		a.RegisteredAt = time.Now()
	}
	if a.Photos == nil {
		a.Photos = datatypes.JSONSlice[string]{}
	}
	if a.ReferencePhotos == nil {
		a.ReferencePhotos = datatypes.JSONSlice[string]{}
	}
	if a.RecognitionHistory == nil {
		a.RecognitionHistory = datatypes.JSONMap{}
	}
	return nil
}

// Validate checks the field constraints and reports every violation at
// once, keyed by field name
func (a *Animal) Validate() error {
	ve := apperrors.NewValidationError()

	tag := strings.TrimSpace(a.EarTag)
	if tag == "" {
		ve.Add("earTag", "ear tag is required")
	} else if len(tag) > 50 {
		ve.Add("earTag", "ear tag must be 1-50 characters")
	}

	if a.BirthDate.IsZero() {
		ve.Add("birthDate", "birth date is required")
	} else if a.BirthDate.After(time.Now()) {
		ve.Add("birthDate", "birth date cannot be in the future")
	}

	breed := strings.TrimSpace(a.Breed)
	if breed == "" {
		ve.Add("breed", "breed is required")
	} else if len(breed) > 100 {
		ve.Add("breed", "breed must be 1-100 characters")
	}

	if len(a.MotherTag) > 50 {
		ve.Add("motherTag", "mother tag must be at most 50 characters")
	}
	if len(a.FatherTag) > 50 {
		ve.Add("fatherTag", "father tag must be at most 50 characters")
	}

	if a.RecognitionAccuracy < 0.0 || a.RecognitionAccuracy > 1.0 {
		ve.Add("recognitionAccuracy", "recognition accuracy must be between 0.0 and 1.0")
	}

	seen := make(map[string]bool, len(a.Photos))
	for _, url := range a.Photos {
		if seen[url] {
			ve.Add("photos", "photo list contains duplicate URL: "+url)
			break
		}
		seen[url] = true
	}

	return ve.ErrOrNil()
}

// AgeAt returns the animal's age in whole years at the given moment,
// using the calendar rule: the year difference drops by one if asOf's
// month/day falls before the birth month/day
func (a *Animal) AgeAt(asOf time.Time) int {
	birth := a.BirthDate.Time
	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() ||
		(asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	return age
}

// HasReliableBiometrics reports whether the stored recognition output
// is trustworthy: confidence above 0.7 backed by at least 3 training
// photos
func (a *Animal) HasReliableBiometrics() bool {
	if a.Biometrics == nil {
		return false
	}
	confidence, ok := numericValue(a.Biometrics["confidence"])
	if !ok || confidence <= 0.7 {
		return false
	}
	count, ok := numericValue(a.Biometrics["trainingPhotosCount"])
	return ok && count >= 3
}

// numericValue coerces JSON-decoded numbers, which arrive as float64
// but may be ints when set directly in code
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AddPhoto appends a photo URL unless it is already present. the list
// behaves like an ordered set: first-seen order is preserved.
// persistence is the caller's responsibility
func (a *Animal) AddPhoto(url string) {
	for _, existing := range a.Photos {
		if existing == url {
			return
		}
	}
	a.Photos = append(a.Photos, url)
}

// RemovePhoto filters a photo URL out of the list, leaving the order of
// the remaining entries unchanged. removing an absent URL is a no-op
func (a *Animal) RemovePhoto(url string) {
	filtered := make(datatypes.JSONSlice[string], 0, len(a.Photos))
	for _, existing := range a.Photos {
		if existing != url {
			filtered = append(filtered, existing)
		}
	}
	a.Photos = filtered
}

// AnimalUpdate carries a partial update; only non-nil fields are
// applied. Category and Sex arrive as raw strings so they pass through
// the same normalization as creation
type AnimalUpdate struct {
	EarTag                *string            `json:"earTag"`
	BirthDate             *DateOnly          `json:"birthDate"`
	MotherTag             *string            `json:"motherTag"`
	FatherTag             *string            `json:"fatherTag"`
	Breed                 *string            `json:"breed"`
	Category              *string            `json:"category"`
	Sex                   *string            `json:"sex"`
	Note                  *string            `json:"note"`
	Biometrics            *datatypes.JSONMap `json:"biometrics"`
	ReferencePhotos       *[]string          `json:"referencePhotos"`
	RecognitionHistory    *datatypes.JSONMap `json:"recognitionHistory"`
	RecognitionAccuracy   *float64           `json:"recognitionAccuracy"`
	TrainedForRecognition *bool              `json:"trainedForRecognition"`
}

// ApplyTo copies the supplied fields onto the animal. RegisteredAt and
// Photos are intentionally untouchable through partial updates
func (u *AnimalUpdate) ApplyTo(a *Animal) {
	if u.EarTag != nil {
		a.EarTag = strings.TrimSpace(*u.EarTag)
	}
	if u.BirthDate != nil {
		a.BirthDate = *u.BirthDate
	}
	if u.MotherTag != nil {
		a.MotherTag = *u.MotherTag
	}
	if u.FatherTag != nil {
		a.FatherTag = *u.FatherTag
	}
	if u.Breed != nil {
		a.Breed = strings.TrimSpace(*u.Breed)
	}
	if u.Category != nil {
		a.Category = NormalizeCategory(*u.Category)
	}
	if u.Sex != nil {
		a.Sex = NormalizeSex(*u.Sex)
	}
	if u.Note != nil {
		a.Note = *u.Note
	}
	if u.Biometrics != nil {
		a.Biometrics = *u.Biometrics
	}
	if u.ReferencePhotos != nil {
		a.ReferencePhotos = datatypes.JSONSlice[string](*u.ReferencePhotos)
	}
	if u.RecognitionHistory != nil {
		a.RecognitionHistory = *u.RecognitionHistory
	}
	if u.RecognitionAccuracy != nil {
		a.RecognitionAccuracy = *u.RecognitionAccuracy
	}
	if u.TrainedForRecognition != nil {
		a.TrainedForRecognition = *u.TrainedForRecognition
	}
}
