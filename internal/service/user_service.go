package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/clinic-content/internal/auth"
	"github.com/tendant/clinic-content/internal/domain"
	"github.com/tendant/clinic-content/internal/repository"
)

// UserService handles account operations
type UserService struct {
	users  repository.UserRepository
	hasher *auth.Hasher
	tokens *auth.TokenService
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, hasher *auth.Hasher, tokens *auth.TokenService) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// Session is the result of a successful register or login
type Session struct {
	User  *domain.User
	Token string
}

// Register creates an account and issues a token for it
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("User registered", "user_id", user.ID, "role", user.Role)
	return &Session{User: user, Token: token}, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, domain.NewValidationError("name", "Name is required")
	case in.Email == "":
		return nil, domain.NewValidationError("email", "Email is required")
	case in.Password == "":
		return nil, domain.NewValidationError("password", "Password is required")
	case len(in.Password) > auth.MaxPasswordBytes:
		return nil, domain.NewValidationError("password", "Password must be at most %d bytes", auth.MaxPasswordBytes)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, domain.NewValidationError("role", "Invalid role %q", role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login checks credentials. An unknown email and a wrong password yield the
// same ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.VerifyMissing(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	user.PasswordHash = ""
	return &Session{User: user, Token: token}, nil
}

// Me returns the account behind id
func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetUser(ctx, id)
}

// List returns every account without password hashes
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Delete removes an account. An admin cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return err
	}

	if actor != nil && user.ID == actor.ID {
		return domain.NewValidationError("id", "You cannot delete yourself")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("User deleted", "user_id", id)
	return nil
}

// SeedAdmin creates an admin account unless one already exists. It reports
// whether an account was created.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	exists, err := s.users.HasAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check for admin: %w", err)
	}
	if exists {
		return false, nil
	}

	user, err := s.create(ctx, RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}

	slog.Info("Admin seeded", "user_id", user.ID, "email", user.Email)
	return true, nil
}
