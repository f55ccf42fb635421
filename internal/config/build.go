package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/repository/memory"
	"github.com/tendant/clinic-content/internal/repository/postgres"
	"github.com/tendant/clinic-content/internal/storage"
	fsstorage "github.com/tendant/clinic-content/internal/storage/fs"
	memorystorage "github.com/tendant/clinic-content/internal/storage/memory"
	s3storage "github.com/tendant/clinic-content/internal/storage/s3"
)

// Stores holds the document repositories
type Stores struct {
	Users        repository.UserRepository
	Posts        repository.PostRepository
	Testimonials repository.TestimonialRepository

	close func()
}

// Close releases the database pool, if any
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// BuildStores creates the repositories selected by DatabaseURL. For
// PostgreSQL, pending migrations are applied first when RunMigrations is set.
func (c *Config) BuildStores(ctx context.Context) (*Stores, error) {
	if !c.UsesPostgres() {
		slog.Warn("Using in-memory document store, data is lost on restart")
		users := memory.NewUserRepository()
		return &Stores{
			Users:        users,
			Posts:        memory.NewPostRepository(users),
			Testimonials: memory.NewTestimonialRepository(),
		}, nil
	}

	if c.RunMigrations {
		if err := postgres.RunMigrations(c.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.Connect(ctx, c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Users:        postgres.NewUserRepository(pool),
		Posts:        postgres.NewPostRepository(pool),
		Testimonials: postgres.NewTestimonialRepository(pool),
		close:        pool.Close,
	}, nil
}

// BuildBlobStore creates the blob store selected by STORAGE_URL
func (c *Config) BuildBlobStore(ctx context.Context) (storage.Backend, error) {
	target, err := c.Storage.Parse()
	if err != nil {
		return nil, err
	}

	switch target.Kind {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: target.Path})
	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 target.Region,
			Bucket:                 target.Bucket,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			EnableSSE:              c.Storage.EnableSSE,
			SSEAlgorithm:           c.Storage.SSEAlgorithm,
			SSEKMSKeyID:            c.Storage.SSEKMSKeyID,
			PublicRead:             c.Storage.PublicRead,
			CreateBucketIfNotExist: c.Storage.CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", target.Kind)
	}
}

// ServesMedia reports whether the API must serve uploaded objects itself
func (c *Config) ServesMedia() bool {
	target, err := c.Storage.Parse()
	return err == nil && target.Kind != "s3"
}

// BuildIngestor creates the media ingestor over store
func (c *Config) BuildIngestor(store storage.Backend, opts ...media.Option) (*media.Ingestor, error) {
	opts = append([]media.Option{
		media.WithOptimizer(media.NewOptimizer(c.Media.Optimize, c.Media.MaxDimension, c.Media.JPEGQuality)),
	}, opts...)
	return media.NewIngestor(store, media.Config{
		Folder:        c.Media.Folder,
		PublicBaseURL: c.Media.PublicBaseURL,
	}, opts...)
}
