package iam

import (
	"context"
	"errors"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// Service implements credential verification and token issuance over the
// identity store.
type Service struct {
	store      *Store
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates the identity service. The signing key must be
// non-empty; callers validate that at configuration load.
func NewService(st *Store, signKey []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      st,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Store exposes the underlying identity store.
func (s *Service) Store() *Store { return s.store }

// Authenticate verifies a username/password pair and returns the user
// with roles attached. Unknown user and wrong password both return
// ErrUnauthorized; the caller cannot tell which failed.
func (s *Service) Authenticate(ctx context.Context, name, password string) (User, error) {
	user, err := s.store.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// IssueTokens signs an access/refresh token pair for the user. Both carry
// the same claim shape; they differ only in lifetime.
func (s *Service) IssueTokens(user User) (TokenPair, error) {
	now := time.Now()

	access, err := signToken(user, s.signKey, s.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := signToken(user, s.signKey, s.refreshTTL, now)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// ResolveUser validates a bearer token and loads the current user record
// for its subject. A valid token whose user has since been deleted fails
// with ErrUnauthorized, as does any signature, issuer, or expiry problem.
func (s *Service) ResolveUser(ctx context.Context, raw string) (User, error) {
	claims, err := parseToken(raw, s.signKey)
	if err != nil {
		return User{}, ErrUnauthorized
	}

	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	return user, nil
}
