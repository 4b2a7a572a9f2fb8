package media

// derivative encoding parameters. the original is bounded to a
// 1920x1920 box and never upscaled; the thumbnail is a center-cropped
// square
const (
	OriginalMaxSize     = 1920
	OriginalJpegQuality = 85

	ThumbnailSize        = 300
	ThumbnailJpegQuality = 70

	ThumbnailFilePrefix = "thumb_"

	DerivativeExtension = ".jpg"
)

// allowedMimeTypes is the upload allowlist. anything else is rejected
// before the record is even looked up
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// IsAllowedMimeType checks the declared content type of an upload
func IsAllowedMimeType(mimeType string) bool {
	return allowedMimeTypes[mimeType]
}

// UploadFile is one file of a (possibly batch) upload, already buffered
// in memory
type UploadFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// IngestResult describes one stored derivative pair
type IngestResult struct {
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	OriginalName string `json:"originalName,omitempty"`
}

// UploadError reports a single failed file within a batch upload
type UploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult collects the outcome of a multi-file upload. one file's
// failure never aborts the others
type BatchResult struct {
	Uploaded []IngestResult `json:"uploaded"`
	Errors   []UploadError  `json:"errors"`
}
