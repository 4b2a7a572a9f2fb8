package handlers

import (
	"bytes"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/flockregistry/config"
	"github.com/camden-git/flockregistry/media"
	"github.com/camden-git/flockregistry/models"
	"github.com/camden-git/flockregistry/repository"
)

type testEnv struct {
	router *chi.Mux
	repo   *repository.AnimalRepository
}

// newTestEnv wires a throwaway database, media store and router the
// same way main.go does
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "registry.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Animal{}))

	repo := repository.NewAnimalRepository(db)

	store, err := media.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	pipeline := media.NewPipeline(repo, store, media.NewProcessor(store), "http://localhost:8080")

	cfg := config.Config{
		BaseURL:          "http://localhost:8080",
		MaxUploadBytes:   10 << 20,
		MaxFilesPerBatch: 5,
	}

	animalHandler := &AnimalHandler{Repo: repo}
	photoHandler := &PhotoHandler{Pipeline: pipeline, Cfg: cfg}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Post("/", animalHandler.CreateAnimal)
			r.Get("/", animalHandler.ListAnimals)
			r.Get("/stats/summary", animalHandler.GetStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", animalHandler.GetAnimal)
				r.Put("/", animalHandler.UpdateAnimal)
				r.Delete("/", animalHandler.DeleteAnimal)
			})
		})

		r.Post("/upload-photo", photoHandler.UploadPhoto)
		r.Post("/upload-photos", photoHandler.UploadPhotos)
		r.Delete("/delete-photo", photoHandler.DeletePhoto)
		r.Route("/photos/{earTag}", func(r chi.Router) {
			r.Get("/", photoHandler.ListPhotos)
			r.Get("/orphans", photoHandler.ListOrphans)
		})
	})

	return &testEnv{router: r, repo: repo}
}

func (env *testEnv) createAnimal(t *testing.T, earTag string) *models.Animal {
	t.Helper()
	birth, err := models.ParseDateOnly("2021-04-01")
	require.NoError(t, err)
	animal := &models.Animal{
		EarTag:    earTag,
		BirthDate: birth,
		Breed:     "Suffolk",
		Category:  models.CategoryEwe,
		Sex:       models.SexFemale,
	}
	require.NoError(t, env.repo.Create(animal))
	return animal
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 100, G: 110, B: 80, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

type multipartFile struct {
	field    string
	filename string
	mimeType string
	data     []byte
}

// buildMultipart assembles a multipart body with an earTag form value
// and the given files, preserving each file's declared content type
func buildMultipart(t *testing.T, earTag string, files ...multipartFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if earTag != "" {
		require.NoError(t, writer.WriteField("earTag", earTag))
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		header.Set("Content-Type", f.mimeType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}
