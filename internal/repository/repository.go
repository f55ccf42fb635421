// Package repository defines the document store used by the services.
package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/domain"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// UserRepository defines the interface for account operations
type UserRepository interface {
	// Create stores a new account; ErrDuplicateEmail when the email is taken
	Create(ctx context.Context, user *domain.User) error
	// GetUser loads an account without its password hash
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// FindByEmailWithSecret is the only read that returns the password hash
	FindByEmailWithSecret(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	HasAdmin(ctx context.Context) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// PostRepository defines the interface for blog post operations. Reads fill
// the author projection.
type PostRepository interface {
	Insert(ctx context.Context, post *domain.Post) error
	Replace(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Post, error)
	FindPage(ctx context.Context, page Pagination, sort domain.SortOrder) ([]*domain.Post, int, error)
	// SlugExists reports whether another post than excludeID uses slug
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	// TitleExists reports whether another post than excludeID uses title
	TitleExists(ctx context.Context, title string, excludeID uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// TestimonialRepository defines the interface for testimonial operations
type TestimonialRepository interface {
	Create(ctx context.Context, t *domain.Testimonial) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error)
	// FindPage lists testimonials newest first
	FindPage(ctx context.Context, page Pagination) ([]*domain.Testimonial, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Pagination is a 1-based page window
type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads raw query values. Absent, non-numeric or
// non-positive values fall back to page 1 and defaultLimit; the limit is
// capped at MaxPageLimit.
func ParsePagination(page, limit string, defaultLimit int) Pagination {
	if defaultLimit < 1 {
		defaultLimit = DefaultPageLimit
	}
	p := Pagination{Page: 1, Limit: defaultLimit}
	if n, err := strconv.Atoi(page); err == nil && n >= 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n >= 1 {
		p.Limit = n
	}
	return p.Normalize()
}

// Normalize clamps the page and limit into range
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of items skipped before the page
func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pages is ceil(total/limit)
func (p Pagination) Pages(total int) int {
	p = p.Normalize()
	if total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Window returns the [start, end) bounds of the page within n items
func (p Pagination) Window(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Normalize().Limit
	if end > n {
		end = n
	}
	return start, end
}
