package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/facette/natsort"
)

// Store defines the interface for saving, listing, and deleting photo
// derivatives. paths are relative to the uploads root and use forward
// slashes, so they double as URL path suffixes
type Store interface {
	// Save stores data at the given relative path, creating directories
	// as needed, and returns the relative path back
	Save(relativePath string, data io.Reader) (string, error)
	// Delete removes an asset; a missing file is not an error
	Delete(relativePath string) error
	// List returns the asset filenames stored for one animal in natural
	// order (excluding thumbnails)
	List(earTag string) ([]string, error)
	// GetFullPath returns the absolute filesystem path for a relative
	// asset path
	GetFullPath(relativePath string) (string, error)
}

// OriginalPath is the storage location of an original derivative,
// keyed by the owning animal's ear tag
func OriginalPath(earTag, filename string) string {
	return path.Join("photos", earTag, filename)
}

// ThumbnailPath is the storage location of the matching thumbnail
func ThumbnailPath(earTag, filename string) string {
	return path.Join("photos", earTag, "thumbnails", ThumbnailFilePrefix+filename)
}

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath string // absolute path to the uploads root
}

// NewLocalStorage creates a new local filesystem store rooted at
// basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	log.Printf("media.store: Initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{basePath: absBasePath}, nil
}

// Save data to the store under relativePath
func (ls *LocalStorage) Save(relativePath string, data io.Reader) (string, error) {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", relativePath, err)
	}

	outFile, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}

	log.Printf("media.store: Saved asset to %s", fullPath)
	return relativePath, nil
}

// Delete removes an asset file. already-missing files are treated as
// success
func (ls *LocalStorage) Delete(relativePath string) error {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset '%s': %w", relativePath, err)
	}
	if err == nil {
		log.Printf("media.store: Deleted asset %s", fullPath)
	}
	return nil
}

// List returns the original-derivative filenames stored for earTag in
// natural sort order. a missing directory simply means no assets
func (ls *LocalStorage) List(earTag string) ([]string, error) {
	dirPath, err := ls.GetFullPath(path.Join("photos", earTag))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list assets for '%s': %w", earTag, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	natsort.Sort(names)
	return names, nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	cleanRelativePath := filepath.Clean(filepath.FromSlash(relativePath))

	fullPath := filepath.Join(ls.basePath, cleanRelativePath)

	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", relativePath, err)
	}

	if !strings.HasPrefix(absFullPath, ls.basePath) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}

	return absFullPath, nil
}
