package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/config"
	"github.com/tendant/clinic-content/internal/logging"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/repository"
	"github.com/tendant/clinic-content/internal/service"
)

// ResetOptions selects what reset deletes
type ResetOptions struct {
	All          bool
	Users        bool
	Posts        bool
	Testimonials bool
	Yes          bool
}

// Any reports whether anything is selected
func (o ResetOptions) Any() bool {
	return o.All || o.Users || o.Posts || o.Testimonials
}

// Seeder seeds and resets the stores
type Seeder struct {
	stores   *config.Stores
	users    *service.UserService
	ingestor *media.Ingestor
	admin    config.AdminConfig
}

func newSeederFromEnv(ctx context.Context) (*Seeder, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.IsDevelopment(), cfg.LogLevel)

	stores, err := cfg.BuildStores(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build document store: %w", err)
	}
	blobs, err := cfg.BuildBlobStore(ctx)
	if err != nil {
		stores.Close()
		return nil, nil, fmt.Errorf("failed to build blob store: %w", err)
	}
	ingestor, err := cfg.BuildIngestor(blobs)
	if err != nil {
		stores.Close()
		return nil, nil, err
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		stores.Close()
		return nil, nil, err
	}

	users := service.NewUserService(stores.Users, auth.NewHasher(cfg.BcryptCost), tokens)
	return NewSeeder(stores, users, ingestor, cfg.Admin), stores.Close, nil
}

// NewSeeder creates a Seeder
func NewSeeder(stores *config.Stores, users *service.UserService, ingestor *media.Ingestor, admin config.AdminConfig) *Seeder {
	return &Seeder{stores: stores, users: users, ingestor: ingestor, admin: admin}
}

// SeedAdmin creates the configured admin unless an admin exists
func (s *Seeder) SeedAdmin(ctx context.Context, out io.Writer) error {
	if s.admin.Email == "" || s.admin.Password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	created, err := s.users.SeedAdmin(ctx, s.admin.Name, s.admin.Email, s.admin.Password)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		fmt.Fprintf(out, "Admin user created: %s\n", s.admin.Email)
	} else {
		fmt.Fprintln(out, "Admin user already exists")
	}
	return nil
}

// Reset deletes the selected collections, asking on in unless opts.Yes
func (s *Seeder) Reset(ctx context.Context, opts ResetOptions, in io.Reader, out io.Writer) error {
	answers := bufio.NewReader(in)
	confirm := func(what string) bool {
		if opts.Yes {
			return true
		}
		fmt.Fprintf(out, "Delete all %s? [y/N]: ", what)
		line, _ := answers.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}

	if (opts.All || opts.Posts) && confirm("posts") {
		n, err := s.resetPosts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d posts\n", n)
	}

	if (opts.All || opts.Testimonials) && confirm("testimonials") {
		n, err := s.stores.Testimonials.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete testimonials: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d testimonials\n", n)
	}

	if (opts.All || opts.Users) && confirm("users") {
		n, err := s.stores.Users.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete users: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d users\n", n)
		return s.SeedAdmin(ctx, out)
	}

	return nil
}

// resetPosts deletes every post, then releases the images they referenced
func (s *Seeder) resetPosts(ctx context.Context) (int64, error) {
	var images []string
	page := repository.Pagination{Page: 1, Limit: repository.MaxPageLimit}
	for {
		posts, total, err := s.stores.Posts.FindPage(ctx, page, "")
		if err != nil {
			return 0, fmt.Errorf("failed to list posts: %w", err)
		}
		for _, p := range posts {
			images = append(images, p.Images()...)
		}
		if page.Page >= page.Pages(total) {
			break
		}
		page.Page++
	}

	n, err := s.stores.Posts.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete posts: %w", err)
	}

	if s.ingestor != nil {
		s.ingestor.ReleaseAll(ctx, images)
		slog.Debug("Released post images", "count", len(images))
	}
	return n, nil
}
