package repository

import (
	"github.com/camden-git/flockregistry/models"
)

// AnimalFilter is a conjunction of optional predicates over the animal
// table. zero values mean "no constraint"
type AnimalFilter struct {
	Search   string // case-insensitive substring over ear_tag OR note
	Breed    string
	Category models.Category
	Sex      models.Sex
	Trained  *bool
}

// ListOptions carries filtering, pagination and sorting for List
type ListOptions struct {
	Filter    AnimalFilter
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AnimalPage is one page of results plus the pagination bookkeeping the
// API returns alongside it
type AnimalPage struct {
	Animals   []models.Animal
	Total     int64
	Page      int
	PageSize  int
	PageCount int
}

// CategoryCount is one row of the per-category summary
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int64           `json:"count"`
}

// BreedCount is one row of the top-breeds summary
type BreedCount struct {
	Breed string `json:"breed"`
	Count int64  `json:"count"`
}

// Stats is the registry-wide summary
type Stats struct {
	Total      int64           `json:"total"`
	ByCategory []CategoryCount `json:"byCategory"`
	ByBreed    []BreedCount    `json:"byBreed"`
}

// AnimalRepositoryInterface defines the methods for animal data operations
type AnimalRepositoryInterface interface {
	Create(animal *models.Animal) error
	GetByID(id string) (*models.Animal, error)
	GetByEarTag(earTag string) (*models.Animal, error)
	List(opts ListOptions) (*AnimalPage, error)
	Update(id string, update *models.AnimalUpdate) (*models.Animal, error)
	Save(animal *models.Animal) error
	Delete(id string) error
	Stats() (*Stats, error)
}
