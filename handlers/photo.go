package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/flockregistry/config"
	"github.com/camden-git/flockregistry/media"
)

type PhotoHandler struct {
	Pipeline *media.Pipeline
	Cfg      config.Config
}

// readUpload buffers one multipart file, enforcing the per-file size
// limit before any processing happens
func (ph *PhotoHandler) readUpload(header *multipart.FileHeader) (media.UploadFile, error) {
	if header.Size > ph.Cfg.MaxUploadBytes {
		return media.UploadFile{}, fmt.Errorf("file %s exceeds the %d byte limit", header.Filename, ph.Cfg.MaxUploadBytes)
	}

	file, err := header.Open()
	if err != nil {
		return media.UploadFile{}, fmt.Errorf("failed to open uploaded file %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ph.Cfg.MaxUploadBytes+1))
	if err != nil {
		return media.UploadFile{}, fmt.Errorf("failed to read uploaded file %s: %w", header.Filename, err)
	}
	if int64(len(data)) > ph.Cfg.MaxUploadBytes {
		return media.UploadFile{}, fmt.Errorf("file %s exceeds the %d byte limit", header.Filename, ph.Cfg.MaxUploadBytes)
	}

	return media.UploadFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// UploadPhoto handles a single-photo multipart upload: field "photo"
// plus form value "earTag"
func (ph *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(ph.Cfg.MaxUploadBytes); err != nil {
		writeBadRequest(w, "Invalid multipart form: "+err.Error())
		return
	}

	earTag := r.FormValue("earTag")
	if earTag == "" {
		writeBadRequest(w, "earTag is required")
		return
	}

	_, header, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "No photo file provided")
		return
	}

	upload, err := ph.readUpload(header)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := ph.Pipeline.Ingest(earTag, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"originalUrl":  result.OriginalURL,
		"thumbnailUrl": result.ThumbnailURL,
		"filename":     result.Filename,
		"size":         result.Size,
		"message":      "Photo uploaded successfully",
		"timestamp":    timestamp(),
	})
}

// UploadPhotos handles a batch multipart upload: field "photos"
// (repeated, capped) plus form value "earTag". per-file failures are
// reported without failing the batch
func (ph *PhotoHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	maxBatchBytes := ph.Cfg.MaxUploadBytes * int64(ph.Cfg.MaxFilesPerBatch)
	if err := r.ParseMultipartForm(maxBatchBytes); err != nil {
		writeBadRequest(w, "Invalid multipart form: "+err.Error())
		return
	}

	earTag := r.FormValue("earTag")
	if earTag == "" {
		writeBadRequest(w, "earTag is required")
		return
	}

	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 {
		writeBadRequest(w, "No photo files provided")
		return
	}
	if len(headers) > ph.Cfg.MaxFilesPerBatch {
		writeBadRequest(w, fmt.Sprintf("At most %d files per request", ph.Cfg.MaxFilesPerBatch))
		return
	}

	files := make([]media.UploadFile, 0, len(headers))
	oversize := []media.UploadError{}
	for _, header := range headers {
		upload, err := ph.readUpload(header)
		if err != nil {
			log.Printf("Skipping batch file %s: %v", header.Filename, err)
			oversize = append(oversize, media.UploadError{Filename: header.Filename, Error: err.Error()})
			continue
		}
		files = append(files, upload)
	}

	batch, err := ph.Pipeline.IngestMany(earTag, files)
	if err != nil {
		writeError(w, err)
		return
	}
	batch.Errors = append(batch.Errors, oversize...)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploaded":      batch.Uploaded,
		"errors":        batch.Errors,
		"totalUploaded": len(batch.Uploaded),
		"totalErrors":   len(batch.Errors),
		"message":       fmt.Sprintf("Successfully uploaded %d photos", len(batch.Uploaded)),
		"timestamp":     timestamp(),
	})
}

// DeletePhoto removes a photo by URL. file deletion is best-effort;
// the record is updated only if it still exists
func (ph *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoURL string `json:"photoUrl"`
		EarTag   string `json:"earTag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.PhotoURL == "" {
		writeBadRequest(w, "photoUrl is required")
		return
	}

	if err := ph.Pipeline.Retract(req.PhotoURL, req.EarTag); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Photo deleted successfully",
		"photoUrl":  req.PhotoURL,
		"timestamp": timestamp(),
	})
}

// ListPhotos returns the current photo URLs bound to an animal
func (ph *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	earTag := chi.URLParam(r, "earTag")

	photos, err := ph.Pipeline.ListPhotos(earTag)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"earTag":    earTag,
		"photos":    photos,
		"count":     len(photos),
		"timestamp": timestamp(),
	})
}

// ListOrphans reports stored files no longer referenced by the record,
// a leftover of best-effort deletions
func (ph *PhotoHandler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	earTag := chi.URLParam(r, "earTag")

	orphans, err := ph.Pipeline.Orphans(earTag)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"earTag":    earTag,
		"orphans":   orphans,
		"count":     len(orphans),
		"timestamp": timestamp(),
	})
}
