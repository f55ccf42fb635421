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

// TestimonialHandler handles testimonial HTTP requests
type TestimonialHandler struct {
	testimonials *service.TestimonialService
	gate         *auth.Gate
	errs         *Errors
}

// NewTestimonialHandler creates a new testimonial handler
func NewTestimonialHandler(testimonials *service.TestimonialService, gate *auth.Gate, errs *Errors) *TestimonialHandler {
	return &TestimonialHandler{
		testimonials: testimonials,
		gate:         gate,
		errs:         errs,
	}
}

// Routes returns the routes for testimonials
func (h *TestimonialHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTestimonials)
	r.Post("/", h.CreateTestimonial)
	r.With(h.gate.Authenticate, h.gate.RequireRole(domain.RoleAdmin)).Delete("/{id}", h.DeleteTestimonial)

	return r
}

// CreateTestimonial stores a public testimonial
func (h *TestimonialHandler) CreateTestimonial(w http.ResponseWriter, r *http.Request) {
	var req service.TestimonialInput
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	t, err := h.testimonials.Create(r.Context(), req)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, t)
}

// ListTestimonials returns one page of testimonials
func (h *TestimonialHandler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := repository.ParsePagination(q.Get("page"), q.Get("limit"), service.DefaultTestimonialLimit)

	result, err := h.testimonials.List(r.Context(), page)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}
	render.JSON(w, r, result)
}

// DeleteTestimonial removes a testimonial (admin only)
func (h *TestimonialHandler) DeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, domain.ErrNotFound, "Testimonial")
		return
	}

	if err := h.testimonials.Delete(r.Context(), id); err != nil {
		h.errs.Write(w, r, err, "Testimonial")
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Testimonial removed"})
}
