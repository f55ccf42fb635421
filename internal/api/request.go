package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/service"
)

// DefaultMaxBodyBytes bounds request bodies, base64 images included
const DefaultMaxBodyBytes = 20 << 20

var sectionImageField = regexp.MustCompile(`^sectionImages\[(\d+)\]$`)

// decodeJSON decodes the body into v. Malformed JSON is a validation error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "Request body is required")
		}
		return domain.NewValidationError("body", "Invalid request body")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// postRequest is the JSON body of a post create or update. Booleans accept
// true/false or their string forms, sections an array or a JSON string.
type postRequest struct {
	Title      *string         `json:"title"`
	Excerpt    *string         `json:"excerpt"`
	Category   *string         `json:"category"`
	CoverImage *string         `json:"coverImage"`
	Sections   json.RawMessage `json:"sections"`
	Featured   json.RawMessage `json:"featured"`
	Published  json.RawMessage `json:"published"`
}

// parsePostInput reads a JSON or multipart post body
func parsePostInput(r *http.Request, maxBytes int64) (service.PostInput, error) {
	if isMultipart(r) {
		return parseMultipartPost(r, maxBytes)
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		return service.PostInput{}, err
	}

	in := service.PostInput{
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Category: req.Category,
	}
	if req.CoverImage != nil {
		src := media.FromString(*req.CoverImage)
		in.CoverImage = &src
	}
	if !blankSections(req.Sections) {
		sections, err := service.ParseSections(req.Sections)
		if err != nil {
			return service.PostInput{}, err
		}
		in.Sections, in.HasSections = sections, true
	}

	var err error
	if in.Featured, err = jsonBool("featured", req.Featured); err != nil {
		return service.PostInput{}, err
	}
	if in.Published, err = jsonBool("published", req.Published); err != nil {
		return service.PostInput{}, err
	}
	return in, nil
}

// blankSections reports whether raw leaves sections untouched: missing, null
// or an empty string. An explicit [] still clears them.
func blankSections(raw []byte) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`:
		return true
	}
	return false
}

func parseMultipartPost(r *http.Request, maxBytes int64) (service.PostInput, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.PostInput{}, err
		}
		return service.PostInput{}, domain.NewValidationError("body", "Invalid multipart form")
	}
	form := r.MultipartForm
	defer form.RemoveAll()

	var in service.PostInput
	in.Title = formValue(form, "title")
	in.Excerpt = formValue(form, "excerpt")
	in.Category = formValue(form, "category")

	if raw := formValue(form, "sections"); raw != nil && !blankSections([]byte(*raw)) {
		sections, err := service.ParseSections([]byte(*raw))
		if err != nil {
			return service.PostInput{}, err
		}
		in.Sections, in.HasSections = sections, true
	}

	var err error
	if in.Featured, err = formBool(form, "featured"); err != nil {
		return service.PostInput{}, err
	}
	if in.Published, err = formBool(form, "published"); err != nil {
		return service.PostInput{}, err
	}

	if headers := form.File["coverImage"]; len(headers) > 0 {
		file, err := readFile(headers[0])
		if err != nil {
			return service.PostInput{}, err
		}
		src := media.FromFile(file)
		in.CoverImage = &src
	} else if cover := formValue(form, "coverImage"); cover != nil {
		src := media.FromString(*cover)
		in.CoverImage = &src
	}

	if err := attachSectionFiles(form, &in); err != nil {
		return service.PostInput{}, err
	}
	return in, nil
}

// attachSectionFiles appends sectionImages[<i>] files to section i
func attachSectionFiles(form *multipart.Form, in *service.PostInput) error {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		m := sectionImageField.FindStringSubmatch(field)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= len(in.Sections) {
			return domain.NewValidationError("sections", "%s does not match a section", field)
		}
		for _, header := range form.File[field] {
			file, err := readFile(header)
			if err != nil {
				return err
			}
			in.Sections[idx].Images = append(in.Sections[idx].Images, media.FromFile(file))
		}
	}
	return nil
}

func readFile(header *multipart.FileHeader) (*media.File, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return &media.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func formBool(form *multipart.Form, key string) (*bool, error) {
	v := formValue(form, key)
	if v == nil {
		return nil, nil
	}
	return parseBool(key, *v)
}

func jsonBool(key string, raw json.RawMessage) (*bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, domain.NewValidationError(key, "%s must be a boolean", key)
	}
	return parseBool(key, s)
}

func parseBool(key, s string) (*bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, domain.NewValidationError(key, "%s must be a boolean", key)
	}
	return &b, nil
}
