package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/repository/memory"
	storagememory "github.com/tendant/clinic-content/internal/storage/memory"
)

const baseURL = "https://cdn.clinic.test"

// flakyStore wraps the memory backend and can be told to fail
type flakyStore struct {
	*storagememory.Backend
	failUpload bool
	failDelete bool
}

func (s *flakyStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if s.failUpload {
		return errors.New("store unavailable")
	}
	return s.Backend.Upload(ctx, key, r, contentType)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failDelete {
		return errors.New("store unavailable")
	}
	return s.Backend.Delete(ctx, key)
}

// failingPosts fails every Insert and Replace
type failingPosts struct {
	repository.PostRepository
}

func (failingPosts) Insert(context.Context, *domain.Post) error  { return errors.New("db down") }
func (failingPosts) Replace(context.Context, *domain.Post) error { return errors.New("db down") }

type serviceFixture struct {
	users        *memory.UserRepository
	posts        *memory.PostRepository
	store        *flakyStore
	ingestor     *media.Ingestor
	userService  *UserService
	postService  *PostService
	testimonials *TestimonialService
	staff        *domain.User
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()

	users := memory.NewUserRepository()
	posts := memory.NewPostRepository(users)
	store := &flakyStore{Backend: storagememory.New()}

	ingestor, err := media.NewIngestor(store, media.Config{PublicBaseURL: baseURL})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("test-secret")
	require.NoError(t, err)

	f := &serviceFixture{
		users:        users,
		posts:        posts,
		store:        store,
		ingestor:     ingestor,
		userService:  NewUserService(users, auth.NewHasher(bcrypt.MinCost), tokens),
		postService:  NewPostService(posts, ingestor),
		testimonials: NewTestimonialService(memory.NewTestimonialRepository()),
	}

	session, err := f.userService.Register(context.Background(), RegisterInput{
		Name: "Nurse Joy", Email: "joy@clinic.test", Password: "secret", Role: domain.RoleStaff,
	})
	require.NoError(t, err)
	f.staff = session.User
	return f
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func ptr[T any](v T) *T { return &v }

func srcPtr(s string) *media.Source {
	src := media.FromString(s)
	return &src
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	assert.Equal(t, domain.RoleStaff, f.staff.Role)
	assert.Empty(t, f.staff.PasswordHash)

	_, err := f.userService.Register(ctx, RegisterInput{Name: "Dup", Email: "joy@clinic.test", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	session, err := f.userService.Register(ctx, RegisterInput{Name: "Pat", Email: "pat@clinic.test", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.NotEmpty(t, session.Token)

	t.Run("Validation", func(t *testing.T) {
		for field, in := range map[string]RegisterInput{
			"name":     {Email: "a@b", Password: "x"},
			"email":    {Name: "a", Password: "x"},
			"password": {Name: "a", Email: "a@b"},
			"role":     {Name: "a", Email: "a@b", Password: "x", Role: "superuser"},
		} {
			_, err := f.userService.Register(ctx, in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve, field)
			assert.Equal(t, field, ve.Field)
		}
	})

	t.Run("PasswordTooLongForBcrypt", func(t *testing.T) {
		_, err := f.userService.Register(ctx, RegisterInput{Name: "Long", Email: "long@clinic.test", Password: strings.Repeat("a", 73)})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "password", ve.Field)

		_, err = f.userService.Register(ctx, RegisterInput{Name: "Edge", Email: "edge@clinic.test", Password: strings.Repeat("a", 72)})
		assert.NoError(t, err)
	})

	t.Run("LoginSuccess", func(t *testing.T) {
		session, err := f.userService.Login(ctx, "joy@clinic.test", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, domain.RoleStaff, session.User.Role)
		assert.Empty(t, session.User.PasswordHash)
	})

	t.Run("LoginDoesNotDiscloseExistence", func(t *testing.T) {
		_, wrongPassword := f.userService.Login(ctx, "joy@clinic.test", "nope")
		_, unknownEmail := f.userService.Login(ctx, "ghost@clinic.test", "nope")

		assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})
}

func TestUserService_Delete(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	err := f.userService.Delete(ctx, f.staff.ID, f.staff)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "You cannot delete yourself", ve.Message)

	assert.ErrorIs(t, f.userService.Delete(ctx, uuid.New(), admin), domain.ErrNotFound)

	require.NoError(t, f.userService.Delete(ctx, f.staff.ID, admin))
	_, err = f.userService.Me(ctx, f.staff.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_SeedAdmin(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	created, err := f.userService.SeedAdmin(ctx, "Admin", "admin@clinic.test", "pw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.userService.SeedAdmin(ctx, "Admin 2", "admin2@clinic.test", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	session, err := f.userService.Login(ctx, "admin@clinic.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, session.User.Role)
}

func TestParseSections(t *testing.T) {
	array := []byte(`[{"heading":"Intro","content":"<p>hi</p>","list":["a"],"images":["https://x/a.png",""]}]`)

	fromArray, err := ParseSections(array)
	require.NoError(t, err)
	require.Len(t, fromArray, 1)
	assert.Equal(t, "Intro", fromArray[0].Heading)
	assert.Len(t, fromArray[0].Images, 1)

	encoded, err := ParseSections([]byte(`"[{\"heading\":\"Intro\"}]"`))
	require.NoError(t, err)
	require.Len(t, encoded, 1)
	assert.Equal(t, "Intro", encoded[0].Heading)

	empty, err := ParseSections(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{`{`, `"not json"`, `{"heading":"x"}`} {
		_, err := ParseSections([]byte(bad))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, bad)
		assert.Equal(t, "Invalid sections format", ve.Message)
	}
}

func TestPostService_Create(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	post, err := f.postService.Create(ctx, PostInput{
		Title:      ptr("Eye Health Tips"),
		Category:   ptr("Eye Care Tips"),
		CoverImage: srcPtr(pngDataURI(t)),
		Sections: []SectionInput{
			{Heading: "One", Content: `<p>Safe</p><script>alert(1)</script>`, Images: []media.Source{media.FromString(pngDataURI(t))}},
			{Heading: "Two"},
		},
		HasSections: true,
	}, f.staff)
	require.NoError(t, err)

	assert.Equal(t, "eye-health-tips", post.Slug)
	assert.Contains(t, post.CoverImage, baseURL+"/clinic_blog/")
	assert.True(t, post.Published)
	assert.False(t, post.Featured)
	require.NotNil(t, post.Author)
	assert.Equal(t, f.staff.ID, post.Author.ID)

	require.Len(t, post.Sections, 2)
	assert.Len(t, post.Sections[0].Images, 1)
	assert.NotNil(t, post.Sections[1].Images)
	assert.Empty(t, post.Sections[1].Images)
	assert.NotContains(t, post.Sections[0].Content, "script")
	assert.Contains(t, post.Sections[0].Content, "<p>Safe</p>")
	assert.Len(t, f.store.Keys(), 2)

	t.Run("Validation", func(t *testing.T) {
		_, err := f.postService.Create(ctx, PostInput{Category: ptr("Glaucoma")}, f.staff)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "title", ve.Field)

		_, err = f.postService.Create(ctx, PostInput{Title: ptr("x"), Category: ptr("Cooking")}, f.staff)
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "category", ve.Field)
	})

	t.Run("DuplicateTitleFailsWithoutSideEffects", func(t *testing.T) {
		_, err := f.postService.Create(ctx, PostInput{
			Title:      ptr("Eye Health Tips"),
			Category:   ptr("Glaucoma"),
			CoverImage: srcPtr(pngDataURI(t)),
		}, f.staff)
		assert.ErrorIs(t, err, domain.ErrDuplicateTitle)
		assert.Len(t, f.store.Keys(), 2)

		page, err := f.postService.List(ctx, repository.Pagination{Page: 1, Limit: 10}, domain.SortNewest)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("SlugDisambiguation", func(t *testing.T) {
		other, err := f.postService.Create(ctx, PostInput{Title: ptr("Eye health tips!"), Category: ptr("Glaucoma")}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "eye-health-tips-2", other.Slug)
	})

	t.Run("PlainURLPassesThrough", func(t *testing.T) {
		p, err := f.postService.Create(ctx, PostInput{
			Title:      ptr("Hosted Cover"),
			Category:   ptr("News & Events"),
			CoverImage: srcPtr("https://images.example.com/cover.jpg"),
		}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "https://images.example.com/cover.jpg", p.CoverImage)
	})
}

func TestPostService_CreateRollsBackUploads(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	svc := NewPostService(failingPosts{f.posts}, f.ingestor)

	_, err := svc.Create(ctx, PostInput{
		Title:      ptr("Doomed"),
		Category:   ptr("Glaucoma"),
		CoverImage: srcPtr(pngDataURI(t)),
	}, f.staff)
	require.Error(t, err)
	assert.Empty(t, f.store.Keys())
}

func TestPostService_CreateUploadFailure(t *testing.T) {
	f := setupServiceTest(t)
	f.store.failUpload = true

	_, err := f.postService.Create(context.Background(), PostInput{
		Title:      ptr("Upload Fails"),
		Category:   ptr("Glaucoma"),
		CoverImage: srcPtr(pngDataURI(t)),
	}, f.staff)
	assert.ErrorIs(t, err, domain.ErrMediaUploadFailed)

	_, err = f.postService.Get(context.Background(), "upload-fails")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostService_Update(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	created, err := f.postService.Create(ctx, PostInput{
		Title:      ptr("Cataract Basics"),
		Excerpt:    ptr("old"),
		Category:   ptr("Cataract"),
		CoverImage: srcPtr(pngDataURI(t)),
		Sections:   []SectionInput{{Heading: "Keep me"}},
	}, f.staff)
	require.NoError(t, err)
	oldCover := created.CoverImage

	t.Run("ExcerptOnly", func(t *testing.T) {
		updated, err := f.postService.Update(ctx, created.ID, PostInput{Excerpt: ptr("new")}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Excerpt)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Slug, updated.Slug)
		assert.Equal(t, created.Category, updated.Category)
		assert.Equal(t, oldCover, updated.CoverImage)
		assert.Equal(t, created.Sections, updated.Sections)
		assert.Equal(t, created.Author, updated.Author)
	})

	t.Run("EmptyExcerptClears", func(t *testing.T) {
		updated, err := f.postService.Update(ctx, created.ID, PostInput{Excerpt: ptr("")}, f.staff)
		require.NoError(t, err)
		assert.Empty(t, updated.Excerpt)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Category, updated.Category)
		assert.Equal(t, oldCover, updated.CoverImage)
		assert.Equal(t, created.Sections, updated.Sections)
	})

	t.Run("TitleChangeRecomputesSlug", func(t *testing.T) {
		updated, err := f.postService.Update(ctx, created.ID, PostInput{Title: ptr("Cataract Surgery")}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "cataract-surgery", updated.Slug)

		updated, err = f.postService.Update(ctx, created.ID, PostInput{Title: ptr("Cataract surgery!")}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "cataract-surgery", updated.Slug)
	})

	t.Run("ReplacedCoverIsReleased", func(t *testing.T) {
		updated, err := f.postService.Update(ctx, created.ID, PostInput{CoverImage: srcPtr(pngDataURI(t))}, f.staff)
		require.NoError(t, err)
		assert.NotEqual(t, oldCover, updated.CoverImage)

		oldKey, ok := f.ingestor.KeyFromURL(oldCover)
		require.True(t, ok)
		assert.NotContains(t, f.store.Keys(), oldKey)
		assert.Len(t, f.store.Keys(), 1)
	})

	t.Run("EmptyCoverClears", func(t *testing.T) {
		updated, err := f.postService.Update(ctx, created.ID, PostInput{CoverImage: srcPtr("")}, f.staff)
		require.NoError(t, err)
		assert.Empty(t, updated.CoverImage)
		assert.Empty(t, f.store.Keys())
	})

	t.Run("EmptyTitleRejected", func(t *testing.T) {
		_, err := f.postService.Update(ctx, created.ID, PostInput{Title: ptr("  ")}, f.staff)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := f.postService.Update(ctx, uuid.New(), PostInput{Excerpt: ptr("x")}, f.staff)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPostService_DeleteWithFailingRelease(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	created, err := f.postService.Create(ctx, PostInput{
		Title:      ptr("Glaucoma Signs"),
		Category:   ptr("Glaucoma"),
		CoverImage: srcPtr(pngDataURI(t)),
		Sections:   []SectionInput{{Images: []media.Source{media.FromString(pngDataURI(t))}}},
	}, f.staff)
	require.NoError(t, err)

	f.store.failDelete = true
	require.NoError(t, f.postService.Delete(ctx, created.ID))

	_, err = f.postService.Get(ctx, created.Slug)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.postService.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestPostService_DeleteReleasesImages(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	created, err := f.postService.Create(ctx, PostInput{
		Title:      ptr("Clean Up"),
		Category:   ptr("Technology"),
		CoverImage: srcPtr(pngDataURI(t)),
		Sections:   []SectionInput{{Images: []media.Source{media.FromString(pngDataURI(t))}}},
	}, f.staff)
	require.NoError(t, err)
	require.Len(t, f.store.Keys(), 2)

	require.NoError(t, f.postService.Delete(ctx, created.ID))
	assert.Empty(t, f.store.Keys())
}

func TestTestimonialService(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	_, err := f.testimonials.Create(ctx, TestimonialInput{Name: "Pat"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Name and message are required", ve.Message)

	_, err = f.testimonials.Create(ctx, TestimonialInput{Name: "Pat", Message: "Great", Rating: ptr(6)})
	require.ErrorAs(t, err, &ve)

	zero, err := f.testimonials.Create(ctx, TestimonialInput{Name: "Pat", Message: "Great", Rating: ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, zero.Rating)

	for i := 0; i < 7; i++ {
		_, err := f.testimonials.Create(ctx, TestimonialInput{Name: "Sam", Message: "Kind staff", Rating: ptr(5)})
		require.NoError(t, err)
	}

	page, err := f.testimonials.List(ctx, repository.ParsePagination("", "", DefaultTestimonialLimit))
	require.NoError(t, err)
	assert.Equal(t, 8, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Testimonials, 6)

	require.NoError(t, f.testimonials.Delete(ctx, zero.ID))
	assert.ErrorIs(t, f.testimonials.Delete(ctx, zero.ID), domain.ErrNotFound)
}
