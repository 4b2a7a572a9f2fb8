package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"

	"github.com/camden-git/flockregistry/models"
	"github.com/camden-git/flockregistry/repository"
)

type AnimalHandler struct {
	Repo repository.AnimalRepositoryInterface
}

// animalRequest is the creation payload. category and sex arrive as
// free-form strings and are normalized, not rejected
type animalRequest struct {
	EarTag                string            `json:"earTag"`
	BirthDate             models.DateOnly   `json:"birthDate"`
	MotherTag             string            `json:"motherTag"`
	FatherTag             string            `json:"fatherTag"`
	Breed                 string            `json:"breed"`
	Category              string            `json:"category"`
	Sex                   string            `json:"sex"`
	Note                  string            `json:"note"`
	Biometrics            datatypes.JSONMap `json:"biometrics"`
	ReferencePhotos       []string          `json:"referencePhotos"`
	RecognitionAccuracy   float64           `json:"recognitionAccuracy"`
	TrainedForRecognition bool              `json:"trainedForRecognition"`
}

func (ah *AnimalHandler) CreateAnimal(w http.ResponseWriter, r *http.Request) {
	var req animalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	animal := &models.Animal{
		EarTag:                strings.TrimSpace(req.EarTag),
		BirthDate:             req.BirthDate,
		MotherTag:             req.MotherTag,
		FatherTag:             req.FatherTag,
		Breed:                 strings.TrimSpace(req.Breed),
		Category:              models.NormalizeCategory(req.Category),
		Sex:                   models.NormalizeSex(req.Sex),
		Note:                  req.Note,
		Biometrics:            req.Biometrics,
		ReferencePhotos:       datatypes.JSONSlice[string](req.ReferencePhotos),
		RecognitionAccuracy:   req.RecognitionAccuracy,
		TrainedForRecognition: req.TrainedForRecognition,
	}

	if err := ah.Repo.Create(animal); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, animal)
}

func (ah *AnimalHandler) GetAnimal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	animal, err := ah.Repo.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, animal)
}

func (ah *AnimalHandler) ListAnimals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := repository.ListOptions{
		Filter: repository.AnimalFilter{
			Search: q.Get("search"),
			Breed:  q.Get("breed"),
		},
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	// category/sex filters match exact stored values; unknown inputs
	// simply match nothing rather than erroring
	if category := q.Get("category"); category != "" {
		opts.Filter.Category = models.Category(strings.ToUpper(category))
	}
	if sex := q.Get("sex"); sex != "" {
		opts.Filter.Sex = models.Sex(strings.ToUpper(sex))
	}
	if trained := q.Get("trained"); trained != "" {
		val, err := strconv.ParseBool(trained)
		if err != nil {
			writeBadRequest(w, "Invalid trained filter: "+trained)
			return
		}
		opts.Filter.Trained = &val
	}

	if page := q.Get("page"); page != "" {
		val, err := strconv.Atoi(page)
		if err != nil || val < 1 {
			writeBadRequest(w, "Invalid page: "+page)
			return
		}
		opts.Page = val
	}
	if pageSize := q.Get("pageSize"); pageSize != "" {
		val, err := strconv.Atoi(pageSize)
		if err != nil || val < 1 {
			writeBadRequest(w, "Invalid pageSize: "+pageSize)
			return
		}
		opts.PageSize = val
	}

	result, err := ah.Repo.List(opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result.Animals,
		"pagination": map[string]interface{}{
			"total":     result.Total,
			"page":      result.Page,
			"pageSize":  result.PageSize,
			"pageCount": result.PageCount,
		},
	})
}

func (ah *AnimalHandler) UpdateAnimal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update models.AnimalUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	animal, err := ah.Repo.Update(id, &update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, animal)
}

func (ah *AnimalHandler) DeleteAnimal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := ah.Repo.Delete(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Animal deleted successfully",
		"id":        id,
		"timestamp": timestamp(),
	})
}

func (ah *AnimalHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ah.Repo.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
