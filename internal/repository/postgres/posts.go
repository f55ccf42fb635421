package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
)

// PostRepository implements repository.PostRepository. Sections are stored
// as JSONB; the author projection comes from a join on users.
type PostRepository struct {
	db DBTX
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

var _ repository.PostRepository = (*PostRepository)(nil)

const selectPost = `
	SELECT p.id, p.title, p.slug, p.excerpt, p.category, p.cover_image, p.sections,
	       p.author_id, u.id, u.name, u.email,
	       p.featured, p.published, p.created_at, p.updated_at
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

func (r *PostRepository) Insert(ctx context.Context, post *domain.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	sections, err := marshalSections(post.Sections)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (
			id, title, slug, excerpt, category, cover_image, sections,
			author_id, featured, published, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Category, post.CoverImage, sections,
		post.AuthorID, post.Featured, post.Published, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return handlePostgresError("insert post", err)
	}
	return nil
}

// Replace overwrites every mutable column; author and creation time are kept
func (r *PostRepository) Replace(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()

	sections, err := marshalSections(post.Sections)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts SET
			title = $2, slug = $3, excerpt = $4, category = $5, cover_image = $6,
			sections = $7, featured = $8, published = $9, updated_at = $10
		WHERE id = $1
		RETURNING author_id, created_at`

	err = r.db.QueryRow(ctx, query,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Category, post.CoverImage,
		sections, post.Featured, post.Published, post.UpdatedAt,
	).Scan(&post.AuthorID, &post.CreatedAt)
	if err != nil {
		return handlePostgresError("replace post", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, selectPost+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, handlePostgresError("find post by id", err)
	}
	return post, nil
}

func (r *PostRepository) FindBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, selectPost+` WHERE p.slug = $1`, slug))
	if err != nil {
		return nil, handlePostgresError("find post by slug", err)
	}
	return post, nil
}

func (r *PostRepository) FindPage(ctx context.Context, page repository.Pagination, order domain.SortOrder) ([]*domain.Post, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, handlePostgresError("count posts", err)
	}

	direction := "DESC"
	if order == domain.SortOldest {
		direction = "ASC"
	}
	query := fmt.Sprintf(`%s ORDER BY p.created_at %s, p.id %s LIMIT $1 OFFSET $2`, selectPost, direction, direction)

	rows, err := r.db.Query(ctx, query, page.Normalize().Limit, page.Offset())
	if err != nil {
		return nil, 0, handlePostgresError("list posts", err)
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, handlePostgresError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, handlePostgresError("list posts", err)
	}
	return posts, total, nil
}

func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, handlePostgresError("check slug", err)
	}
	return exists, nil
}

func (r *PostRepository) TitleExists(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE title = $1 AND id <> $2)`, title, excludeID).Scan(&exists)
	if err != nil {
		return false, handlePostgresError("check title", err)
	}
	return exists, nil
}

func (r *PostRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts`)
	if err != nil {
		return 0, handlePostgresError("delete all posts", err)
	}
	return tag.RowsAffected(), nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var (
		p           domain.Post
		sections    []byte
		authorID    pgtype.UUID
		authorName  pgtype.Text
		authorEmail pgtype.Text
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Category, &p.CoverImage, &sections,
		&p.AuthorID, &authorID, &authorName, &authorEmail,
		&p.Featured, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sections, &p.Sections); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	if p.Sections == nil {
		p.Sections = []domain.Section{}
	}
	if authorID.Valid {
		p.Author = &domain.Author{
			ID:    uuid.UUID(authorID.Bytes),
			Name:  authorName.String,
			Email: authorEmail.String,
		}
	}
	return &p, nil
}

func marshalSections(sections []domain.Section) ([]byte, error) {
	if sections == nil {
		sections = []domain.Section{}
	}
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sections: %w", err)
	}
	return data, nil
}
