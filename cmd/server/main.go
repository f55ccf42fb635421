package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/clinic-content/internal/api"
	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/config"
	"github.com/tendant/clinic-content/internal/keepalive"
	"github.com/tendant/clinic-content/internal/logging"
	"github.com/tendant/clinic-content/internal/media"
	"github.com/tendant/clinic-content/internal/metrics"
	"github.com/tendant/clinic-content/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.IsDevelopment(), cfg.LogLevel)

	ctx := context.Background()

	stores, err := cfg.BuildStores(ctx)
	if err != nil {
		return fmt.Errorf("failed to build document store: %w", err)
	}
	defer stores.Close()

	blobs, err := cfg.BuildBlobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to build blob store: %w", err)
	}

	m := metrics.New()
	ingestor, err := cfg.BuildIngestor(blobs, media.WithRecorder(m))
	if err != nil {
		return fmt.Errorf("failed to build media ingestor: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	// Initialize services
	users := service.NewUserService(stores.Users, auth.NewHasher(cfg.BcryptCost), tokens)
	posts := service.NewPostService(stores.Posts, ingestor)
	testimonials := service.NewTestimonialService(stores.Testimonials)

	// Initialize API handlers
	gate := auth.NewGate(tokens, stores.Users)
	errs := &api.Errors{Development: cfg.IsDevelopment()}
	limiter := api.NewLoginLimiter(cfg.LoginRatePerMinute, errs, m.LoginThrottled)

	handlers := api.Handlers{
		Auth:         api.NewAuthHandler(users, gate, limiter, errs),
		Blog:         api.NewBlogHandler(posts, gate, errs, cfg.MaxBodyBytes),
		Testimonials: api.NewTestimonialHandler(testimonials, gate, errs),
		Upload:       api.NewUploadHandler(ingestor, gate, errs, cfg.MaxBodyBytes),
		Metrics:      m.Handler(),
	}
	if cfg.ServesMedia() {
		handlers.Media = api.NewMediaHandler(blobs, errs)
	}

	router := api.NewRouter(handlers, api.RouterConfig{
		Errors:         errs,
		RequestTimeout: cfg.RequestTimeout,
		Instrument:     m.Middleware,
	})

	if cfg.Keepalive.URL != "" {
		pinger, err := keepalive.New(cfg.Keepalive.URL, cfg.Keepalive.Interval, nil)
		if err != nil {
			return err
		}
		pinger.Start()
		defer pinger.Stop()
	}

	server := newServer(app.DefaultAppConfig(), cfg.CORSAllowedOrigins, router)

	slog.Info("Starting clinic content API",
		"environment", cfg.Environment,
		"postgres", cfg.UsesPostgres(),
		"storage", cfg.Storage.URL)

	// Start server
	server.Run()
	return nil
}

// newServer wraps router in the chi-demo app. The app owns CORS and request
// logging; metrics stay on the router's /metrics.
func newServer(appConfig app.AppConfig, origins []string, router http.Handler) *app.App {
	server := app.NewApp(
		app.WithAppConfig(appConfig),
		app.WithCors(api.CORSOptions(origins)),
		app.WithReqLogger(app.DefaultHttpLogger()),
	)

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Mount("/", router)
	return server
}
