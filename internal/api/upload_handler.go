package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/storage"
)

// UploadHandler ingests single images for rich-text editors
type UploadHandler struct {
	ingestor *media.Ingestor
	gate     *auth.Gate
	errs     *Errors
	maxBytes int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(ingestor *media.Ingestor, gate *auth.Gate, errs *Errors, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &UploadHandler{
		ingestor: ingestor,
		gate:     gate,
		errs:     errs,
		maxBytes: maxBytes,
	}
}

// Routes returns the routes for uploads
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.gate.Authenticate, h.gate.RequireAnyRole(domain.RoleAdmin, domain.RoleStaff))
	r.Post("/", h.Upload)
	return r
}

// UploadRequest is the JSON body of an upload
type UploadRequest struct {
	Image string `json:"image"`
}

// UploadResponse carries the hosted URL
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload accepts {"image": "<data URI or URL>"} or a multipart "image" file
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var src media.Source
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if !errors.As(err, &tooLarge) {
				err = domain.NewValidationError("image", "Invalid multipart form")
			}
			h.errs.Write(w, r, err, "")
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["image"]
		if len(headers) == 0 {
			badRequest(w, r, "No image provided")
			return
		}
		file, err := readFile(headers[0])
		if err != nil {
			h.errs.Write(w, r, err, "")
			return
		}
		src = media.FromFile(file)
	} else {
		var req UploadRequest
		if err := decodeJSON(r, &req); err != nil {
			h.errs.Write(w, r, err, "")
			return
		}
		src = media.FromString(req.Image)
	}

	if src.IsEmpty() {
		badRequest(w, r, "No image provided")
		return
	}

	url, err := h.ingestor.NewBatch().Ingest(r.Context(), src)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}
	render.JSON(w, r, UploadResponse{URL: url})
}

// MediaHandler serves objects from a blob store that has no public endpoint
// of its own, such as the filesystem store.
type MediaHandler struct {
	store storage.Backend
	errs  *Errors
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store storage.Backend, errs *Errors) *MediaHandler {
	return &MediaHandler{store: store, errs: errs}
}

// Routes returns the routes for media downloads
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.Serve)
	return r
}

// Serve streams the object named by the wildcard path
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := path.Clean("/" + chi.URLParam(r, "*"))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		h.errs.Write(w, r, domain.ErrNotFound, "Image")
		return
	}

	reader, err := h.store.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			h.errs.Write(w, r, domain.ErrNotFound, "Image")
			return
		}
		h.errs.Write(w, r, err, "")
		return
	}
	defer reader.Close()

	if ct := contentTypeFor(key); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("Media download interrupted", "key", key, "err", err)
	}
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return ""
}
