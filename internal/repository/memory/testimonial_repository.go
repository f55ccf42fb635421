package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
)

// TestimonialRepository is an in-memory implementation of the TestimonialRepository interface
type TestimonialRepository struct {
	mu           sync.RWMutex
	testimonials map[uuid.UUID]*domain.Testimonial
}

// NewTestimonialRepository creates a new in-memory testimonial repository
func NewTestimonialRepository() *TestimonialRepository {
	return &TestimonialRepository{
		testimonials: make(map[uuid.UUID]*domain.Testimonial),
	}
}

var _ repository.TestimonialRepository = (*TestimonialRepository)(nil)

// Create adds a new testimonial
func (r *TestimonialRepository) Create(ctx context.Context, t *domain.Testimonial) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	stored := *t
	r.testimonials[t.ID] = &stored
	return nil
}

// FindByID retrieves a testimonial by ID
func (r *TestimonialRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.testimonials[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	found := *t
	return &found, nil
}

// FindPage returns one page of testimonials, newest first, and the total count
func (r *TestimonialRepository) FindPage(ctx context.Context, page repository.Pagination) ([]*domain.Testimonial, int, error) {
	r.mu.RLock()
	all := make([]*domain.Testimonial, 0, len(r.testimonials))
	for _, t := range r.testimonials {
		c := *t
		all = append(all, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start, end := page.Window(len(all))
	return all[start:end], len(all), nil
}

// Delete removes a testimonial by ID
func (r *TestimonialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.testimonials[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.testimonials, id)
	return nil
}

// DeleteAll removes every testimonial
func (r *TestimonialRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.testimonials))
	r.testimonials = make(map[uuid.UUID]*domain.Testimonial)
	return n, nil
}
