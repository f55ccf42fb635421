package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/clinic-content/internal/domain"
)

type contextKey string

const userKey contextKey = "auth_user"

// UserLoader loads an account by id without its password hash
type UserLoader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// NewContext returns a copy of ctx carrying user
func NewContext(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user attached by Gate.Authenticate
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// Gate authenticates bearer tokens and enforces roles
type Gate struct {
	tokens *TokenService
	users  UserLoader
}

// NewGate creates a Gate
func NewGate(tokens *TokenService, users UserLoader) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate requires a valid bearer token that resolves to an existing
// account, and attaches that account to the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := jwtauth.TokenFromHeader(r)
		if tokenString == "" {
			deny(w, r, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		userID, err := g.tokens.Verify(tokenString)
		if err != nil {
			slog.Debug("Token rejected", "err", err)
			deny(w, r, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		user, err := g.users.GetUser(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				slog.Error("Failed to load user for token", "user_id", userID, "err", err)
			}
			deny(w, r, http.StatusUnauthorized, "User not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), user)))
	})
}

// RequireRole allows only accounts whose role is exactly role. There is no
// hierarchy: an admin does not pass RequireRole(domain.RoleStaff).
func (g *Gate) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return g.RequireAnyRole(role)
}

// RequireAnyRole allows accounts whose role is one of roles
func (g *Gate) RequireAnyRole(roles ...domain.Role) func(http.Handler) http.Handler {
	message := "Insufficient role"
	if len(roles) == 1 {
		message = titleRole(roles[0]) + " only access"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "Not authorized, no token")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, r, http.StatusForbidden, message)
		})
	}
}

func titleRole(r domain.Role) string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func deny(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}
