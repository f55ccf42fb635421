package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/clinic-content/internal/domain"
)

// TokenTTL is the fixed lifetime of a session token
const TokenTTL = 30 * 24 * time.Hour

const claimUserID = "id"

// TokenService issues and verifies HS256 session tokens carrying a user id
type TokenService struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a TokenService signing with secret
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	return &TokenService{
		ja:  jwtauth.New("HS256", []byte(secret), nil),
		ttl: TokenTTL,
		now: time.Now,
	}, nil
}

// Issue returns a signed token for userID that expires after TokenTTL
func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := map[string]interface{}{
		claimUserID: userID.String(),
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(s.ttl))

	_, tokenString, err := s.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature and expiry and returns the embedded user id.
// Every failure is reported as domain.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwtauth.VerifyToken(s.ja, tokenString)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	raw, ok := token.Get(claimUserID)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing %s claim", domain.ErrInvalidToken, claimUserID)
	}
	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: malformed %s claim", domain.ErrInvalidToken, claimUserID)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return id, nil
}
