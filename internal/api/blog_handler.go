package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/service"
)

// BlogHandler handles blog post HTTP requests
type BlogHandler struct {
	posts    *service.PostService
	gate     *auth.Gate
	errs     *Errors
	maxBytes int64
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(posts *service.PostService, gate *auth.Gate, errs *Errors, maxBytes int64) *BlogHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &BlogHandler{
		posts:    posts,
		gate:     gate,
		errs:     errs,
		maxBytes: maxBytes,
	}
}

// Routes returns the routes for blog posts. The {key} segment is a slug on
// reads and an id on writes.
func (h *BlogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPosts)
	r.Get("/{key}", h.GetPost)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireAnyRole(domain.RoleAdmin, domain.RoleStaff))
			r.Post("/", h.CreatePost)
			r.Put("/{key}", h.UpdatePost)
		})

		r.With(h.gate.RequireRole(domain.RoleAdmin)).Delete("/{key}", h.DeletePost)
	})

	return r
}

// ListPosts returns one page of posts
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := repository.ParsePagination(q.Get("page"), q.Get("limit"), repository.DefaultPageLimit)

	result, err := h.posts.List(r.Context(), page, domain.ParseSortOrder(q.Get("sort")))
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}
	render.JSON(w, r, result)
}

// GetPost returns a post by slug
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.errs.Write(w, r, err, "Post")
		return
	}
	render.JSON(w, r, post)
}

// CreatePost creates a post from a JSON or multipart body
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	in, err := parsePostInput(r, h.maxBytes)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	actor, _ := auth.UserFromContext(r.Context())
	post, err := h.posts.Create(r.Context(), in, actor)
	if err != nil {
		h.errs.Write(w, r, err, "Post")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post)
}

// UpdatePost applies a partial update
func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "key"))
	if err != nil {
		h.errs.Write(w, r, domain.ErrNotFound, "Post")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	in, err := parsePostInput(r, h.maxBytes)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	actor, _ := auth.UserFromContext(r.Context())
	post, err := h.posts.Update(r.Context(), id, in, actor)
	if err != nil {
		h.errs.Write(w, r, err, "Post")
		return
	}
	render.JSON(w, r, post)
}

// DeletePost removes a post (admin only)
func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "key"))
	if err != nil {
		h.errs.Write(w, r, domain.ErrNotFound, "Post")
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		h.errs.Write(w, r, err, "Post")
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Post removed successfully"})
}
