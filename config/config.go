package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultPhotosSubDir     = "photos"
	DefaultThumbnailsSubDir = "thumbnails"
)

const (
	defaultMaxUploadBytes   = 10 << 20 // 10 MiB per file
	defaultMaxFilesPerBatch = 5
)

type Config struct {
	// database path
	DatabasePath string

	// upload storage configuration
	UploadsPath string // primary root for stored derivatives
	PhotosPath  string // full-calculated path for per-animal photo dirs

	// base URL used to build absolute photo addresses returned to clients
	BaseURL string

	// upload limits
	MaxUploadBytes   int64
	MaxFilesPerBatch int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "flock.db")

	uploads := getEnvOrDefault("UPLOADS_PATH", filepath.Join(".", "uploads"))
	absUploads, err := filepath.Abs(uploads)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for uploads '%s': %w", uploads, err)
	}

	photosSubDir := getEnvOrDefault("PHOTOS_SUBDIR", DefaultPhotosSubDir)
	absPhotosPath := filepath.Join(absUploads, photosSubDir)

	port := getEnvOrDefault("PORT", "8080")
	baseURL := getEnvOrDefault("BASE_URL", "http://localhost:"+port)
	baseURL = strings.TrimRight(baseURL, "/")

	maxUpload := int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes))
	maxFiles := getEnvIntOrDefault("MAX_FILES_PER_BATCH", defaultMaxFilesPerBatch)

	cfg := Config{
		DatabasePath:     dbPath,
		UploadsPath:      absUploads,
		PhotosPath:       absPhotosPath,
		BaseURL:          baseURL,
		MaxUploadBytes:   maxUpload,
		MaxFilesPerBatch: maxFiles,
	}

	return cfg, nil
}
