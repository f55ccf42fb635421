package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
)

// TestimonialRepository implements repository.TestimonialRepository
type TestimonialRepository struct {
	db DBTX
}

// NewTestimonialRepository creates a new PostgreSQL testimonial repository
func NewTestimonialRepository(db DBTX) *TestimonialRepository {
	return &TestimonialRepository{db: db}
}

var _ repository.TestimonialRepository = (*TestimonialRepository)(nil)

func (r *TestimonialRepository) Create(ctx context.Context, t *domain.Testimonial) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
		INSERT INTO testimonials (id, name, location, message, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query, t.ID, t.Name, t.Location, t.Message, t.Rating, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return handlePostgresError("create testimonial", err)
	}
	return nil
}

func (r *TestimonialRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	query := `
		SELECT id, name, location, message, rating, created_at, updated_at
		FROM testimonials WHERE id = $1`

	var t domain.Testimonial
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Location, &t.Message, &t.Rating, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, handlePostgresError("find testimonial", err)
	}
	return &t, nil
}

func (r *TestimonialRepository) FindPage(ctx context.Context, page repository.Pagination) ([]*domain.Testimonial, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM testimonials`).Scan(&total); err != nil {
		return nil, 0, handlePostgresError("count testimonials", err)
	}

	query := `
		SELECT id, name, location, message, rating, created_at, updated_at
		FROM testimonials ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, page.Normalize().Limit, page.Offset())
	if err != nil {
		return nil, 0, handlePostgresError("list testimonials", err)
	}
	defer rows.Close()

	items := []*domain.Testimonial{}
	for rows.Next() {
		var t domain.Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.Location, &t.Message, &t.Rating, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, handlePostgresError("scan testimonial", err)
		}
		items = append(items, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, handlePostgresError("list testimonials", err)
	}
	return items, total, nil
}

func (r *TestimonialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM testimonials WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete testimonial", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TestimonialRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM testimonials`)
	if err != nil {
		return 0, handlePostgresError("delete all testimonials", err)
	}
	return tag.RowsAffected(), nil
}
