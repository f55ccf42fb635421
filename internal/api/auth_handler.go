package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/service"
)

// AuthHandler handles account HTTP requests
type AuthHandler struct {
	users   *service.UserService
	gate    *auth.Gate
	limiter *LoginLimiter
	errs    *Errors
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, gate *auth.Gate, limiter *LoginLimiter, errs *Errors) *AuthHandler {
	return &AuthHandler{
		users:   users,
		gate:    gate,
		limiter: limiter,
		errs:    errs,
	}
}

// Routes returns the routes for accounts
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.limiter.Middleware).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Authenticate)
		r.Get("/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireRole(domain.RoleAdmin))
			r.Post("/register", h.Register)
			r.Get("/users", h.ListUsers)
			r.Delete("/users/{id}", h.DeleteUser)
		})
	})

	return r
}

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// RegisterResponse is the response body for a created account
type RegisterResponse struct {
	ID    uuid.UUID   `json:"_id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token string      `json:"token"`
	Role  domain.Role `json:"role"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// MeResponse is the response body for the current account
type MeResponse struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Register creates an account (admin only)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	session, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.errs.Write(w, r, err, "User")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegisterResponse{
		ID:    session.User.ID,
		Name:  session.User.Name,
		Email: session.User.Email,
		Role:  session.User.Role,
		Token: session.Token,
	})
}

// Login exchanges credentials for a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}

	render.JSON(w, r, LoginResponse{
		Token: session.Token,
		Role:  session.User.Role,
		Name:  session.User.Name,
		Email: session.User.Email,
	})
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, domain.ErrUnauthenticated, "")
		return
	}

	render.JSON(w, r, MeResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

// ListUsers returns every account (admin only)
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err, "")
		return
	}
	render.JSON(w, r, users)
}

// DeleteUser removes an account (admin only)
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, domain.ErrNotFound, "User")
		return
	}

	actor, _ := auth.UserFromContext(r.Context())
	if err := h.users.Delete(r.Context(), id, actor); err != nil {
		h.errs.Write(w, r, err, "User")
		return
	}

	render.JSON(w, r, MessageResponse{Message: "User deleted successfully"})
}
