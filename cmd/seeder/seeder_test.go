package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/config"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/service"
	storagememory "github.com/tendant/clinic-content/internal/storage/memory"
)

func setupSeederTest(t *testing.T) (*Seeder, *config.Stores, *storagememory.Backend) {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{DatabaseURL: "memory"}
	stores, err := cfg.BuildStores(ctx)
	require.NoError(t, err)

	blobs := storagememory.New()
	ingestor, err := media.NewIngestor(blobs, media.Config{PublicBaseURL: "http://localhost:8000/media"})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("secret")
	require.NoError(t, err)
	users := service.NewUserService(stores.Users, auth.NewHasher(bcrypt.MinCost), tokens)

	admin := config.AdminConfig{Name: "Clinic Admin", Email: "admin@clinic.test", Password: "adminpass"}
	return NewSeeder(stores, users, ingestor, admin), stores, blobs
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	s, stores, _ := setupSeederTest(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, s.SeedAdmin(ctx, &out))
	assert.Contains(t, out.String(), "Admin user created")

	out.Reset()
	require.NoError(t, s.SeedAdmin(ctx, &out))
	assert.Contains(t, out.String(), "already exists")

	all, err := stores.Users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, domain.RoleAdmin, all[0].Role)
}

func TestSeedAdmin_RequiresCredentials(t *testing.T) {
	s, _, _ := setupSeederTest(t)
	s.admin.Password = ""

	err := s.SeedAdmin(context.Background(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	s, stores, blobs := setupSeederTest(t)
	ctx := context.Background()
	require.NoError(t, s.SeedAdmin(ctx, &bytes.Buffer{}))

	asset, err := s.ingestor.Upload(ctx, pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, stores.Posts.Insert(ctx, &domain.Post{Title: "T", Slug: "t", Category: "Glaucoma", CoverImage: asset.URL}))
	require.NoError(t, stores.Testimonials.Create(ctx, &domain.Testimonial{Name: "Ada", Message: "Great"}))

	t.Run("declined confirmation keeps data", func(t *testing.T) {
		var out bytes.Buffer
		err := s.Reset(ctx, ResetOptions{Posts: true}, strings.NewReader("n\n"), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Delete all posts?")

		_, total, err := stores.Posts.FindPage(ctx, repository.Pagination{Page: 1, Limit: 10}, "")
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("posts release their images", func(t *testing.T) {
		var out bytes.Buffer
		err := s.Reset(ctx, ResetOptions{Posts: true}, strings.NewReader("y\n"), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Deleted 1 posts")
		assert.Empty(t, blobs.Keys())
	})

	t.Run("all with yes re-seeds admin", func(t *testing.T) {
		var out bytes.Buffer
		err := s.Reset(ctx, ResetOptions{All: true, Yes: true}, strings.NewReader(""), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Deleted 1 testimonials")
		assert.Contains(t, out.String(), "Admin user created")

		hasAdmin, err := stores.Users.HasAdmin(ctx)
		require.NoError(t, err)
		assert.True(t, hasAdmin)
	})
}

func TestResetCommand_RequiresSelection(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"reset"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to reset")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
