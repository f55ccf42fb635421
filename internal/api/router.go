package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// Handlers groups the mounted resources. Media and Metrics are optional.
type Handlers struct {
	Auth         *AuthHandler
	Blog         *BlogHandler
	Testimonials *TestimonialHandler
	Upload       *UploadHandler
	Media        *MediaHandler
	Metrics      http.Handler
}

// RouterConfig configures the middleware stack. CORS and request logging
// belong to the enclosing app, see CORSOptions.
type RouterConfig struct {
	Errors         *Errors
	RequestTimeout time.Duration
	// Instrument wraps every request, e.g. with metrics collection
	Instrument func(http.Handler) http.Handler
}

// NewRouter assembles the middleware stack and mounts every resource
func NewRouter(h Handlers, cfg RouterConfig) chi.Router {
	if cfg.Errors == nil {
		cfg.Errors = &Errors{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cfg.Errors.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.Instrument != nil {
		r.Use(cfg.Instrument)
	}

	r.NotFound(NotFound)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "API is running...")
	})

	r.Mount("/auth", h.Auth.Routes())
	r.Mount("/blog", h.Blog.Routes())
	r.Mount("/testimonials", h.Testimonials.Routes())
	r.Mount("/upload", h.Upload.Routes())
	if h.Media != nil {
		r.Mount("/media", h.Media.Routes())
	}
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	return r
}

// CORSOptions restricts cross-origin access to origins. An empty list allows
// any origin without credentials.
func CORSOptions(origins []string) *cors.Options {
	credentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
		credentials = false
	}
	return &cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}
