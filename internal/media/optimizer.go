package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/tendant/clinic-content/internal/domain"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Extension returns the file extension for an allowed image content type
func Extension(contentType string) (string, bool) {
	ext, ok := allowedTypes[contentType]
	return ext, ok
}

// Optimizer re-encodes uploaded images into a web-friendly size and quality
type Optimizer struct {
	enabled      bool
	maxDimension int
	jpegQuality  int
}

// NewOptimizer creates an Optimizer. A disabled optimizer only validates the format.
func NewOptimizer(enabled bool, maxDimension, jpegQuality int) *Optimizer {
	if maxDimension <= 0 {
		maxDimension = 1920
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 82
	}
	return &Optimizer{
		enabled:      enabled,
		maxDimension: maxDimension,
		jpegQuality:  jpegQuality,
	}
}

// Process sniffs the image type, rejects non-images, and when enabled
// auto-orients, downscales and re-encodes it. It returns the bytes to store
// and their content type.
func (o *Optimizer) Process(data []byte) ([]byte, string, error) {
	contentType := http.DetectContentType(data)
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, "", domain.NewValidationError("image", "images only (jpeg, png, gif, webp)")
	}

	if !o.enabled {
		return data, contentType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", domain.NewValidationError("image", "unsupported image format")
	}

	resized := false
	bounds := img.Bounds()
	if bounds.Dx() > o.maxDimension || bounds.Dy() > o.maxDimension {
		img = resize.Thumbnail(uint(o.maxDimension), uint(o.maxDimension), img, resize.Lanczos3)
		resized = true
	}

	out, outType, err := o.encode(img, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	// Re-encoding a small, already compressed image can make it larger
	if !resized && len(out) >= len(data) {
		return data, contentType, nil
	}
	return out, outType, nil
}

func (o *Optimizer) encode(img image.Image, contentType string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch contentType {
	case "image/png", "image/gif":
		// keep transparency
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(o.jpegQuality)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
