package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
)

// DefaultTestimonialLimit is the page size when none is requested
const DefaultTestimonialLimit = 6

// TestimonialService handles the public testimonial board
type TestimonialService struct {
	testimonials repository.TestimonialRepository
}

// NewTestimonialService creates a new testimonial service
func NewTestimonialService(testimonials repository.TestimonialRepository) *TestimonialService {
	return &TestimonialService{testimonials: testimonials}
}

// TestimonialInput carries a submitted testimonial. A zero rating counts as none.
type TestimonialInput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Message  string `json:"message"`
	Rating   *int   `json:"rating"`
}

// TestimonialPage is one page of testimonials
type TestimonialPage struct {
	Testimonials []*domain.Testimonial `json:"testimonials"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	Pages        int                   `json:"pages"`
}

// Create stores a testimonial
func (s *TestimonialService) Create(ctx context.Context, in TestimonialInput) (*domain.Testimonial, error) {
	name := strings.TrimSpace(in.Name)
	message := strings.TrimSpace(in.Message)
	if name == "" || message == "" {
		return nil, domain.NewValidationError("message", "Name and message are required")
	}

	rating := in.Rating
	if rating != nil && *rating == 0 {
		rating = nil
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, domain.NewValidationError("rating", "Rating must be between 1 and 5")
	}

	t := &domain.Testimonial{
		Name:     name,
		Location: strings.TrimSpace(in.Location),
		Message:  message,
		Rating:   rating,
	}
	if err := s.testimonials.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns one page of testimonials, newest first
func (s *TestimonialService) List(ctx context.Context, page repository.Pagination) (*TestimonialPage, error) {
	page = page.Normalize()
	items, total, err := s.testimonials.FindPage(ctx, page)
	if err != nil {
		return nil, err
	}
	return &TestimonialPage{
		Testimonials: items,
		Total:        total,
		Page:         page.Page,
		Pages:        page.Pages(total),
	}, nil
}

// Delete removes a testimonial
func (s *TestimonialService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.testimonials.Delete(ctx, id)
}
