package media

import (
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camden-git/flockregistry/apperrors"
	"github.com/camden-git/flockregistry/models"
	"github.com/camden-git/flockregistry/repository"
)

// Pipeline is the photo-ingestion flow: validate bytes, derive the
// display copy and the thumbnail, persist them under the owning
// animal's content path and bind the result to the record
type Pipeline struct {
	repo      repository.AnimalRepositoryInterface
	store     Store
	processor *Processor
	baseURL   string
}

func NewPipeline(repo repository.AnimalRepositoryInterface, store Store, processor *Processor, baseURL string) *Pipeline {
	return &Pipeline{
		repo:      repo,
		store:     store,
		processor: processor,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// GenerateAssetFilename builds a collision-resistant name from a
// millisecond timestamp and a short random suffix. derivatives are
// always re-encoded as JPEG, so the extension is fixed
func GenerateAssetFilename() string {
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], DerivativeExtension)
}

func (pl *Pipeline) assetURL(relativePath string) string {
	return pl.baseURL + "/" + relativePath
}

// Ingest validates and stores one uploaded image for the animal with
// the given ear tag, appends the original's URL to the record and
// persists it. the two derivative writes run concurrently; both must
// finish before the record is touched
func (pl *Pipeline) Ingest(earTag string, file UploadFile) (*IngestResult, error) {
	result, animal, err := pl.ingestFile(earTag, file)
	if err != nil {
		return nil, err
	}

	animal.AddPhoto(result.OriginalURL)
	if err := pl.repo.Save(animal); err != nil {
		return nil, fmt.Errorf("failed to bind photo to animal %s: %w", earTag, err)
	}

	return result, nil
}

// IngestMany processes up to MaxFilesPerBatch files independently. one
// file's failure is collected without aborting the others; the record
// is saved once at the end with every photo that succeeded
func (pl *Pipeline) IngestMany(earTag string, files []UploadFile) (*BatchResult, error) {
	animal, err := pl.repo.GetByEarTag(earTag)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Uploaded: []IngestResult{},
		Errors:   []UploadError{},
	}

	for _, file := range files {
		result, err := pl.deriveAndStore(earTag, file)
		if err != nil {
			log.Printf("media.pipeline: Batch file %q failed for %s: %v", file.Name, earTag, err)
			batch.Errors = append(batch.Errors, UploadError{Filename: file.Name, Error: err.Error()})
			continue
		}
		animal.AddPhoto(result.OriginalURL)
		batch.Uploaded = append(batch.Uploaded, *result)
	}

	if err := pl.repo.Save(animal); err != nil {
		return nil, fmt.Errorf("failed to bind batch photos to animal %s: %w", earTag, err)
	}

	return batch, nil
}

// ingestFile runs the single-upload flow up to (but excluding) the
// record mutation
func (pl *Pipeline) ingestFile(earTag string, file UploadFile) (*IngestResult, *models.Animal, error) {
	if !IsAllowedMimeType(file.MimeType) {
		return nil, nil, fmt.Errorf("mime type %q: %w", file.MimeType, apperrors.ErrUnsupportedMedia)
	}

	animal, err := pl.repo.GetByEarTag(earTag)
	if err != nil {
		return nil, nil, err
	}

	result, err := pl.deriveAndStore(earTag, file)
	if err != nil {
		return nil, nil, err
	}
	return result, animal, nil
}

// deriveAndStore decodes the upload and writes both derivatives,
// returning their addresses. the writes are independent and run
// concurrently
func (pl *Pipeline) deriveAndStore(earTag string, file UploadFile) (*IngestResult, error) {
	img, err := pl.processor.Decode(file.Data, file.MimeType)
	if err != nil {
		return nil, err
	}

	filename := GenerateAssetFilename()

	var (
		wg                    sync.WaitGroup
		originalRel, thumbRel string
		originalErr, thumbErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		originalRel, originalErr = pl.processor.ProcessOriginal(img, earTag, filename)
	}()
	go func() {
		defer wg.Done()
		thumbRel, thumbErr = pl.processor.ProcessThumbnail(img, earTag, filename)
	}()
	wg.Wait()

	if originalErr != nil {
		return nil, originalErr
	}
	if thumbErr != nil {
		return nil, thumbErr
	}

	return &IngestResult{
		OriginalURL:  pl.assetURL(originalRel),
		ThumbnailURL: pl.assetURL(thumbRel),
		Filename:     filename,
		Size:         int64(len(file.Data)),
		OriginalName: file.Name,
	}, nil
}

// Retract removes a photo from storage and from its record. file
// deletion is best-effort: failures are logged and swallowed, and an
// already-missing record does not fail the operation either
func (pl *Pipeline) Retract(photoURL, earTag string) error {
	filename, urlTag, err := parsePhotoURL(photoURL)
	if err != nil {
		return err
	}

	if earTag != "" && urlTag != earTag {
		return fmt.Errorf("ear tag %q vs URL segment %q: %w", earTag, urlTag, apperrors.ErrTagMismatch)
	}

	if err := pl.store.Delete(OriginalPath(urlTag, filename)); err != nil {
		log.Printf("media.pipeline: Could not delete original for %s: %v", photoURL, err)
	}
	if err := pl.store.Delete(ThumbnailPath(urlTag, filename)); err != nil {
		log.Printf("media.pipeline: Could not delete thumbnail for %s: %v", photoURL, err)
	}

	animal, err := pl.repo.GetByEarTag(urlTag)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// orphaned reference; the files are gone, nothing to unbind
			return nil
		}
		return err
	}

	animal.RemovePhoto(photoURL)
	if err := pl.repo.Save(animal); err != nil {
		return fmt.Errorf("failed to unbind photo from animal %s: %w", urlTag, err)
	}
	return nil
}

// parsePhotoURL extracts the asset filename and the owning ear tag from
// the trailing path segments of a photo URL
func parsePhotoURL(photoURL string) (filename, earTag string, err error) {
	trimmed := strings.TrimRight(photoURL, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("photo URL %q has no owning ear tag segment", photoURL)
	}
	filename = parts[len(parts)-1]
	earTag = parts[len(parts)-2]
	if filename == "" || earTag == "" {
		return "", "", fmt.Errorf("photo URL %q has empty path segments", photoURL)
	}
	return filename, earTag, nil
}

// ListPhotos returns the record's current photo URLs
func (pl *Pipeline) ListPhotos(earTag string) ([]string, error) {
	animal, err := pl.repo.GetByEarTag(earTag)
	if err != nil {
		return nil, err
	}
	return []string(animal.Photos), nil
}

// Orphans lists stored original files that no longer appear in the
// record's photo list, in natural filename order. useful for cleaning
// up after best-effort deletions
func (pl *Pipeline) Orphans(earTag string) ([]string, error) {
	animal, err := pl.repo.GetByEarTag(earTag)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool, len(animal.Photos))
	for _, url := range animal.Photos {
		referenced[path.Base(url)] = true
	}

	stored, err := pl.store.List(earTag)
	if err != nil {
		return nil, err
	}

	orphans := []string{}
	for _, name := range stored {
		if !referenced[name] {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
