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

// PostRepository is an in-memory implementation of the PostRepository
// interface. Authors are resolved from users.
type PostRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*domain.Post
	// seq breaks creation-time ties in insertion order
	seq   map[uuid.UUID]uint64
	next  uint64
	users *UserRepository
}

// NewPostRepository creates a new in-memory post repository
func NewPostRepository(users *UserRepository) *PostRepository {
	if users == nil {
		users = NewUserRepository()
	}
	return &PostRepository{
		posts: make(map[uuid.UUID]*domain.Post),
		seq:   make(map[uuid.UUID]uint64),
		users: users,
	}
}

var _ repository.PostRepository = (*PostRepository)(nil)

// Insert adds a new post, enforcing unique title and slug
func (r *PostRepository) Insert(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if err := r.checkUnique(post); err != nil {
		return err
	}

	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	r.next++
	r.seq[post.ID] = r.next
	r.posts[post.ID] = clonePost(post)
	return nil
}

// Replace overwrites an existing post
func (r *PostRepository) Replace(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.posts[post.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.checkUnique(post); err != nil {
		return err
	}

	post.CreatedAt = existing.CreatedAt
	post.AuthorID = existing.AuthorID
	post.UpdatedAt = time.Now().UTC()

	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *PostRepository) checkUnique(post *domain.Post) error {
	for id, p := range r.posts {
		if id == post.ID {
			continue
		}
		if p.Title == post.Title {
			return domain.ErrDuplicateTitle
		}
		if p.Slug == post.Slug {
			return domain.ErrDuplicateSlug
		}
	}
	return nil
}

// Delete removes a post by ID
func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.posts, id)
	delete(r.seq, id)
	return nil
}

// FindByID retrieves a post by ID
func (r *PostRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	r.mu.RLock()
	p, exists := r.posts[id]
	r.mu.RUnlock()

	if !exists {
		return nil, domain.ErrNotFound
	}
	return r.withAuthor(p), nil
}

// FindBySlug retrieves a post by slug
func (r *PostRepository) FindBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	r.mu.RLock()
	var found *domain.Post
	for _, p := range r.posts {
		if p.Slug == slug {
			found = p
			break
		}
	}
	r.mu.RUnlock()

	if found == nil {
		return nil, domain.ErrNotFound
	}
	return r.withAuthor(found), nil
}

// FindPage returns one page of posts ordered by creation time, and the total count
func (r *PostRepository) FindPage(ctx context.Context, page repository.Pagination, order domain.SortOrder) ([]*domain.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if order == domain.SortOldest {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.seq[a.ID] > r.seq[b.ID]
	})

	start, end := page.Window(len(all))
	items := make([]*domain.Post, 0, end-start)
	for _, p := range all[start:end] {
		items = append(items, r.withAuthor(p))
	}
	return items, len(all), nil
}

// SlugExists reports whether a post other than excludeID uses slug
func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, p := range r.posts {
		if id != excludeID && p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// TitleExists reports whether a post other than excludeID uses title
func (r *PostRepository) TitleExists(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, p := range r.posts {
		if id != excludeID && p.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll removes every post
func (r *PostRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.posts))
	r.posts = make(map[uuid.UUID]*domain.Post)
	r.seq = make(map[uuid.UUID]uint64)
	return n, nil
}

func (r *PostRepository) withAuthor(p *domain.Post) *domain.Post {
	c := clonePost(p)
	c.Author = r.users.author(p.AuthorID)
	return c
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Author = nil
	c.Sections = make([]domain.Section, len(p.Sections))
	for i, s := range p.Sections {
		s.List = append([]string{}, s.List...)
		s.Images = append([]string{}, s.Images...)
		c.Sections[i] = s
	}
	return &c
}
