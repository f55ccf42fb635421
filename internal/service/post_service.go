package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/slug"
)

// PostService runs the blog post write pipeline and the public reads
type PostService struct {
	posts    repository.PostRepository
	media    *media.Ingestor
	sanitize *bluemonday.Policy
}

// NewPostService creates a new post service
func NewPostService(posts repository.PostRepository, ingestor *media.Ingestor) *PostService {
	return &PostService{
		posts:    posts,
		media:    ingestor,
		sanitize: bluemonday.UGCPolicy(),
	}
}

// SectionInput is a submitted section. Images may mix hosted URLs with new uploads.
type SectionInput struct {
	Heading    string
	Subheading string
	Content    string
	List       []string
	Images     []media.Source
}

// PostInput carries a create or update request. Nil fields are absent: on
// update they leave the stored value alone. A present but empty Excerpt or
// CoverImage clears the value.
type PostInput struct {
	Title      *string
	Excerpt    *string
	Category   *string
	CoverImage *media.Source
	Sections   []SectionInput
	// HasSections distinguishes an absent sections field from an empty list
	HasSections bool
	Featured    *bool
	Published   *bool
}

// PostPage is one page of posts
type PostPage struct {
	Posts []*domain.Post `json:"posts"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
	Total int            `json:"total"`
}

type rawSection struct {
	Heading    string   `json:"heading"`
	Subheading string   `json:"subheading"`
	Content    string   `json:"content"`
	List       []string `json:"list"`
	Images     []string `json:"images"`
}

// ParseSections accepts a JSON array of sections or a string holding one
func ParseSections(raw []byte) ([]SectionInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []SectionInput{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, domain.NewValidationError("sections", "Invalid sections format")
		}
		return ParseSections([]byte(encoded))
	}

	var parsed []rawSection
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, domain.NewValidationError("sections", "Invalid sections format")
	}

	sections := make([]SectionInput, len(parsed))
	for i, s := range parsed {
		sections[i] = SectionInput{
			Heading:    s.Heading,
			Subheading: s.Subheading,
			Content:    s.Content,
			List:       s.List,
		}
		for _, img := range s.Images {
			if src := media.FromString(img); !src.IsEmpty() {
				sections[i].Images = append(sections[i].Images, src)
			}
		}
	}
	return sections, nil
}

// Create validates, ingests media, derives the slug and stores a new post
// authored by actor.
func (s *PostService) Create(ctx context.Context, in PostInput, actor *domain.User) (*domain.Post, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}

	title := strings.TrimSpace(deref(in.Title))
	if title == "" {
		return nil, domain.NewValidationError("title", "Title is required")
	}
	category, err := validCategory(deref(in.Category))
	if err != nil {
		return nil, err
	}

	taken, err := s.posts.TitleExists(ctx, title, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateTitle
	}

	post := &domain.Post{
		ID:        uuid.New(),
		Title:     title,
		Excerpt:   strings.TrimSpace(deref(in.Excerpt)),
		Category:  category,
		AuthorID:  actor.ID,
		Featured:  in.Featured != nil && *in.Featured,
		Published: in.Published == nil || *in.Published,
	}

	batch := s.media.NewBatch()
	committed := false
	defer func() {
		if !committed {
			batch.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if in.CoverImage != nil {
		if post.CoverImage, err = batch.Ingest(ctx, *in.CoverImage); err != nil {
			return nil, err
		}
	}
	if post.Sections, err = s.buildSections(ctx, batch, in.Sections); err != nil {
		return nil, err
	}

	post.Slug, err = slug.Unique(ctx, title, func(ctx context.Context, candidate string) (bool, error) {
		return s.posts.SlugExists(ctx, candidate, post.ID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, err
	}
	committed = true

	slog.Info("Post created", "post_id", post.ID, "slug", post.Slug, "author_id", actor.ID, "uploads", len(batch.Uploaded()))
	return s.reload(ctx, post, actor), nil
}

// Update applies the present fields of in to the post id. Images the
// update drops are released once the write has succeeded.
func (s *PostService) Update(ctx context.Context, id uuid.UUID, in PostInput, actor *domain.User) (*domain.Post, error) {
	existing, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post := *existing
	previousImages := existing.Images()

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", "Title is required")
		}
		if title != existing.Title {
			taken, err := s.posts.TitleExists(ctx, title, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, domain.ErrDuplicateTitle
			}

			post.Title = title
			post.Slug, err = slug.Unique(ctx, title, func(ctx context.Context, candidate string) (bool, error) {
				return s.posts.SlugExists(ctx, candidate, id)
			})
			if err != nil {
				return nil, err
			}
		}
	}
	if in.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Category != nil {
		if post.Category, err = validCategory(*in.Category); err != nil {
			return nil, err
		}
	}
	if in.Featured != nil {
		post.Featured = *in.Featured
	}
	if in.Published != nil {
		post.Published = *in.Published
	}

	batch := s.media.NewBatch()
	committed := false
	defer func() {
		if !committed {
			batch.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if in.CoverImage != nil {
		if post.CoverImage, err = batch.Ingest(ctx, *in.CoverImage); err != nil {
			return nil, err
		}
	}
	if in.HasSections {
		if post.Sections, err = s.buildSections(ctx, batch, in.Sections); err != nil {
			return nil, err
		}
	}

	if err := s.posts.Replace(ctx, &post); err != nil {
		return nil, err
	}
	committed = true

	s.media.ReleaseAll(context.WithoutCancel(ctx), dropped(previousImages, post.Images()))

	slog.Info("Post updated", "post_id", post.ID, "slug", post.Slug)
	return s.reload(ctx, &post, actor), nil
}

// Delete removes a post and releases its images. Release failures are logged only.
func (s *PostService) Delete(ctx context.Context, id uuid.UUID) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}

	s.media.ReleaseAll(context.WithoutCancel(ctx), post.Images())
	slog.Info("Post deleted", "post_id", id, "slug", post.Slug)
	return nil
}

// Get returns a post by slug
func (s *PostService) Get(ctx context.Context, postSlug string) (*domain.Post, error) {
	return s.posts.FindBySlug(ctx, postSlug)
}

// List returns one page of posts
func (s *PostService) List(ctx context.Context, page repository.Pagination, order domain.SortOrder) (*PostPage, error) {
	page = page.Normalize()
	posts, total, err := s.posts.FindPage(ctx, page, order)
	if err != nil {
		return nil, err
	}
	return &PostPage{
		Posts: posts,
		Page:  page.Page,
		Pages: page.Pages(total),
		Total: total,
	}, nil
}

func (s *PostService) buildSections(ctx context.Context, batch *media.Batch, in []SectionInput) ([]domain.Section, error) {
	sources := make([][]media.Source, len(in))
	for i, sec := range in {
		sources[i] = sec.Images
	}

	images, err := batch.IngestSections(ctx, sources)
	if err != nil {
		return nil, err
	}

	sections := make([]domain.Section, len(in))
	for i, sec := range in {
		list := make([]string, 0, len(sec.List))
		for _, item := range sec.List {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		sections[i] = domain.Section{
			Heading:    strings.TrimSpace(sec.Heading),
			Subheading: strings.TrimSpace(sec.Subheading),
			Content:    s.sanitize.Sanitize(sec.Content),
			List:       list,
			Images:     images[i],
		}
	}
	return sections, nil
}

// reload reads the stored post back to fill the author projection
func (s *PostService) reload(ctx context.Context, post *domain.Post, actor *domain.User) *domain.Post {
	stored, err := s.posts.FindByID(ctx, post.ID)
	if err == nil {
		return stored
	}
	if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("Failed to reload post", "post_id", post.ID, "err", err)
	}
	if actor != nil && post.Author == nil && post.AuthorID == actor.ID {
		post.Author = &domain.Author{ID: actor.ID, Name: actor.Name, Email: actor.Email}
	}
	return post
}

func validCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", domain.NewValidationError("category", "Category is required")
	}
	if !domain.IsValidCategory(category) {
		return "", domain.NewValidationError("category", "Invalid category %q", category)
	}
	return category, nil
}

// dropped returns the entries of before missing from after
func dropped(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

