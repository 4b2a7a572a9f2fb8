package repository

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/camden-git/flockregistry/apperrors"
	"github.com/camden-git/flockregistry/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// sortColumns is the allowlist mapping external sort keys to columns.
// anything else falls back to the default sort
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"earTag":    "ear_tag",
	"birthDate": "birth_date",
	"breed":     "breed",
}

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AnimalRepository handles database operations for Animal records
type AnimalRepository struct {
	DB *gorm.DB
}

// NewAnimalRepository creates a new instance of AnimalRepository
func NewAnimalRepository(db *gorm.DB) *AnimalRepository {
	return &AnimalRepository{DB: db}
}

// Create validates and persists a new animal record. the ear tag must
// be unique; the pre-check gives a clean conflict error, and the unique
// index on ear_tag backstops the check-then-insert race at the storage
// layer
func (r *AnimalRepository) Create(animal *models.Animal) error {
	if err := animal.Validate(); err != nil {
		return err
	}

	var count int64
	if err := r.DB.Model(&models.Animal{}).Where("ear_tag = ?", animal.EarTag).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check ear tag uniqueness for %s: %w", animal.EarTag, err)
	}
	if count > 0 {
		return fmt.Errorf("ear tag %s: %w", animal.EarTag, apperrors.ErrConflict)
	}

	if err := r.DB.Create(animal).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ear tag %s: %w", animal.EarTag, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create animal %s: %w", animal.EarTag, err)
	}
	return nil
}

// GetByID retrieves an animal by its generated ID
func (r *AnimalRepository) GetByID(id string) (*models.Animal, error) {
	var animal models.Animal
	err := r.DB.Where("id = ?", id).First(&animal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("animal %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get animal by ID %s: %w", id, err)
	}
	return &animal, nil
}

// GetByEarTag retrieves an animal by its ear tag
func (r *AnimalRepository) GetByEarTag(earTag string) (*models.Animal, error) {
	var animal models.Animal
	err := r.DB.Where("ear_tag = ?", earTag).First(&animal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ear tag %s: %w", earTag, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get animal by ear tag %s: %w", earTag, err)
	}
	return &animal, nil
}

// List returns one page of animals matching the filter, with total and
// page count. default sort is newest-registered first
func (r *AnimalRepository) List(opts ListOptions) (*AnimalPage, error) {
	page := opts.Page
	if page < 1 {
		page = DefaultPage
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := r.DB.Model(&models.Animal{})
	query = applyFilter(query, opts.Filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count animals: %w", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		direction = "ASC"
	}

	var animals []models.Animal
	err := query.
		Order(column + " " + direction).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&animals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list animals: %w", err)
	}

	pageCount := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &AnimalPage{
		Animals:   animals,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		PageCount: pageCount,
	}, nil
}

func applyFilter(query *gorm.DB, filter AnimalFilter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(ear_tag) LIKE ? OR LOWER(note) LIKE ?", like, like)
	}
	if filter.Breed != "" {
		query = query.Where("breed = ?", filter.Breed)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Sex != "" {
		query = query.Where("sex = ?", filter.Sex)
	}
	if filter.Trained != nil {
		query = query.Where("trained_for_recognition = ?", *filter.Trained)
	}
	return query
}

// Update applies a partial update. only supplied fields change; an ear
// tag change re-runs the uniqueness check excluding the record's own id
func (r *AnimalRepository) Update(id string, update *models.AnimalUpdate) (*models.Animal, error) {
	animal, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if update.EarTag != nil && strings.TrimSpace(*update.EarTag) != animal.EarTag {
		var count int64
		err := r.DB.Model(&models.Animal{}).
			Where("ear_tag = ? AND id <> ?", strings.TrimSpace(*update.EarTag), id).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check ear tag uniqueness for %s: %w", *update.EarTag, err)
		}
		if count > 0 {
			return nil, fmt.Errorf("ear tag %s: %w", *update.EarTag, apperrors.ErrConflict)
		}
	}

	update.ApplyTo(animal)
	if err := animal.Validate(); err != nil {
		return nil, err
	}

	if err := r.DB.Save(animal).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("ear tag %s: %w", animal.EarTag, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update animal %s: %w", id, err)
	}
	return animal, nil
}

// Save persists in-memory mutations of an already-loaded record, used
// by the photo pipeline after AddPhoto/RemovePhoto
func (r *AnimalRepository) Save(animal *models.Animal) error {
	if err := r.DB.Save(animal).Error; err != nil {
		return fmt.Errorf("failed to save animal %s: %w", animal.ID, err)
	}
	return nil
}

// Delete hard-removes an animal record
func (r *AnimalRepository) Delete(id string) error {
	result := r.DB.Delete(&models.Animal{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete animal %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("animal %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// Stats returns the registry summary: total count, count per category
// and the ten most common breeds. the aggregates are plain GROUP BY
// queries built with squirrel and run through GORM's connection
func (r *AnimalRepository) Stats() (*Stats, error) {
	var total int64
	if err := r.DB.Model(&models.Animal{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count animals for stats: %w", err)
	}

	categorySQL, categoryArgs, err := psql.
		Select("category", "COUNT(*) AS count").
		From("animals").
		GroupBy("category").
		OrderBy("count DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category stats query: %w", err)
	}

	var byCategory []CategoryCount
	if err := r.DB.Raw(categorySQL, categoryArgs...).Scan(&byCategory).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate animals by category: %w", err)
	}

	breedSQL, breedArgs, err := psql.
		Select("breed", "COUNT(*) AS count").
		From("animals").
		GroupBy("breed").
		OrderBy("count DESC").
		Limit(10).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build breed stats query: %w", err)
	}

	var byBreed []BreedCount
	if err := r.DB.Raw(breedSQL, breedArgs...).Scan(&byBreed).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate animals by breed: %w", err)
	}

	if byCategory == nil {
		byCategory = []CategoryCount{}
	}
	if byBreed == nil {
		byBreed = []BreedCount{}
	}

	return &Stats{Total: total, ByCategory: byCategory, ByBreed: byBreed}, nil
}

// isUniqueViolation detects SQLite unique-index failures, which GORM
// surfaces as driver errors rather than a typed value
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
