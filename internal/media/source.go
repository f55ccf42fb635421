package media

import (
	"encoding/base64"
	"strings"

	"github.com/tendant/clinic-content/internal/domain"
)

// File is an image received as a multipart upload
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Source is an image reference as submitted by a client: either a string
// (hosted URL or base64 data URI) or an uploaded file. File wins when both are set.
type Source struct {
	Value string
	File  *File
}

// FromString wraps a submitted string value
func FromString(s string) Source {
	return Source{Value: strings.TrimSpace(s)}
}

// FromFile wraps an uploaded file
func FromFile(f *File) Source {
	return Source{File: f}
}

// IsDataURI reports whether s looks like a data URI
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// IsNew reports whether the source carries bytes that must be uploaded
func (s Source) IsNew() bool {
	return s.File != nil || IsDataURI(s.Value)
}

// IsEmpty reports whether the source references nothing
func (s Source) IsEmpty() bool {
	return s.File == nil && s.Value == ""
}

// decodeDataURI parses "data:image/<type>;base64,<payload>"
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, "", domain.NewValidationError("image", "invalid image data")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", domain.NewValidationError("image", "invalid image data")
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", domain.NewValidationError("image", "image data must be base64 encoded")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", domain.NewValidationError("image", "images only")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", domain.NewValidationError("image", "invalid base64 image data")
		}
	}
	if len(data) == 0 {
		return nil, "", domain.NewValidationError("image", "empty image data")
	}

	return data, mimeType, nil
}
