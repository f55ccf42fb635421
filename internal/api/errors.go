// Package api exposes the HTTP surface: accounts, blog posts, testimonials
// and image uploads.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/clinic-content/internal/domain"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// MessageResponse is the body of delete confirmations
type MessageResponse struct {
	Message string `json:"message"`
}

// Errors renders errors as JSON. Server errors carry the error's message, and
// a stack trace in development.
type Errors struct {
	Development bool
}

// Write maps err to a status and message. resource names the entity in 404
// messages, e.g. "Post".
func (e *Errors) Write(w http.ResponseWriter, r *http.Request, err error, resource string) {
	status, message := e.classify(err, resource)

	resp := ErrorResponse{Message: message}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err)
		if e.Development {
			resp.Stack = string(debug.Stack())
		}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (e *Errors) classify(err error, resource string) (int, string) {
	var (
		validation *domain.ValidationError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrNotFound):
		if resource == "" {
			resource = "Resource"
		}
		return http.StatusNotFound, resource + " not found"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrDuplicateTitle):
		return http.StatusConflict, "A post with this title already exists"
	case errors.Is(err, domain.ErrDuplicateSlug):
		return http.StatusConflict, "A post with this slug already exists"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many login attempts, please try again later"
	case errors.Is(err, domain.ErrMediaUploadFailed):
		return http.StatusInternalServerError, "Image upload failed"
	default:
		if msg := err.Error(); msg != "" {
			return http.StatusInternalServerError, msg
		}
		return http.StatusInternalServerError, "Server error"
	}
}

// badRequest renders a 400 with message
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Message: message})
}

// NotFound renders the JSON 404 for unmatched routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{Message: "Not Found - " + r.URL.Path})
}

// Recoverer turns panics into a JSON 500
func (e *Errors) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Panic recovered", "path", r.URL.Path, "panic", rec, "request_id", middleware.GetReqID(r.Context()))

				resp := ErrorResponse{Message: "Server error"}
				if e.Development {
					resp.Stack = string(debug.Stack())
				}
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
