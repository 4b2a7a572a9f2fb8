package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/camden-git/flockregistry/apperrors"
)

// Processor turns an uploaded image into its two stored derivatives. it
// relies on a Store implementation for saving the results.
type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// Decode validates the declared mime type, decodes the raw bytes and
// normalizes EXIF orientation so the derivatives come out upright
// regardless of how the camera was held
func (p *Processor) Decode(raw []byte, declaredMimeType string) (image.Image, error) {
	if !IsAllowedMimeType(declaredMimeType) {
		return nil, fmt.Errorf("mime type %q: %w", declaredMimeType, apperrors.ErrUnsupportedMedia)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode uploaded image: %w", err)
	}
	log.Printf("media.processor: Decoded upload (format: %s, %dx%d)", format, img.Bounds().Dx(), img.Bounds().Dy())

	return applyExifOrientation(raw, img), nil
}

// applyExifOrientation rotates/flips the decoded image according to its
// EXIF Orientation tag. images without EXIF pass through unchanged
func applyExifOrientation(raw []byte, img image.Image) image.Image {
	exifData, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}

	if dt, err := exifData.DateTime(); err == nil {
		log.Printf("media.processor: Upload taken at %s", dt.Format("2006-01-02 15:04:05"))
	}

	tag, err := exifData.Get(exif.Orientation)
	if err != nil || tag == nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// ProcessOriginal stores the display copy: bounded to a 1920x1920 box
// preserving aspect ratio, never upscaled, re-encoded as quality-85
// JPEG. returns the relative path of the saved asset
func (p *Processor) ProcessOriginal(img image.Image, earTag, filename string) (string, error) {
	bounds := img.Bounds()
	processed := img
	if bounds.Dx() > OriginalMaxSize || bounds.Dy() > OriginalMaxSize {
		processed = imaging.Fit(img, OriginalMaxSize, OriginalMaxSize, imaging.Lanczos)
	}

	return p.encodeAndSave(processed, OriginalPath(earTag, filename), OriginalJpegQuality)
}

// ProcessThumbnail stores the gallery copy: exactly 300x300,
// center-anchored cover fit (excess cropped), quality-70 JPEG
func (p *Processor) ProcessThumbnail(img image.Image, earTag, filename string) (string, error) {
	thumb := imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)

	return p.encodeAndSave(thumb, ThumbnailPath(earTag, filename), ThumbnailJpegQuality)
}

func (p *Processor) encodeAndSave(img image.Image, relativePath string, quality int) (string, error) {
	reader, writer := io.Pipe()

	go func() {
		defer writer.Close()
		err := imaging.Encode(writer, img, imaging.JPEG, imaging.JPEGQuality(quality))
		if err != nil {
			log.Printf("media.processor: Failed to encode %s: %v", relativePath, err)
			writer.CloseWithError(fmt.Errorf("derivative encoding failed: %w", err))
		}
	}()

	savedRelPath, err := p.store.Save(relativePath, reader)
	if err != nil {
		return "", fmt.Errorf("failed to save derivative via store: %w", err)
	}
	return savedRelPath, nil
}
