package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/clinic-content/internal/domain"
	fsstorage "github.com/tendant/clinic-content/internal/storage/fs"
	memorystorage "github.com/tendant/clinic-content/internal/storage/memory"
)

func TestBuildStores_Memory(t *testing.T) {
	cfg := &Config{DatabaseURL: "memory"}

	stores, err := cfg.BuildStores(context.Background())
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	user := &domain.User{Name: "A", Email: "a@x.com", Role: domain.RoleAdmin, PasswordHash: "h"}
	require.NoError(t, stores.Users.Create(ctx, user))

	// posts resolve authors from the same user store
	post := &domain.Post{Title: "T", Slug: "t", Category: "Glaucoma", AuthorID: user.ID}
	require.NoError(t, stores.Posts.Insert(ctx, post))
	got, err := stores.Posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, "A", got.Author.Name)
}

func TestBuildBlobStore(t *testing.T) {
	ctx := context.Background()

	cfg := &Config{Storage: StorageConfig{URL: "memory://"}}
	store, err := cfg.BuildBlobStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &memorystorage.Backend{}, store)
	assert.True(t, cfg.ServesMedia())

	cfg = &Config{Storage: StorageConfig{URL: "file://" + t.TempDir()}}
	store, err = cfg.BuildBlobStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &fsstorage.Backend{}, store)
	require.NoError(t, store.Upload(ctx, "clinic_blog/a.png", bytes.NewReader([]byte("x")), "image/png"))

	cfg = &Config{Storage: StorageConfig{URL: "ftp://host/x"}}
	_, err = cfg.BuildBlobStore(ctx)
	assert.Error(t, err)

	cfg = &Config{Storage: StorageConfig{URL: "s3://bucket?region=eu-west-1"}}
	assert.False(t, cfg.ServesMedia())
}

func TestBuildIngestor(t *testing.T) {
	cfg := &Config{Media: MediaConfig{Folder: "posts", PublicBaseURL: "https://cdn.test/media", Optimize: true}}

	ingestor, err := cfg.BuildIngestor(memorystorage.New())
	require.NoError(t, err)

	key, ok := ingestor.KeyFromURL("https://cdn.test/media/posts/a.png")
	assert.True(t, ok)
	assert.Equal(t, "posts/a.png", key)
}
