package server

import (
	"context"
	"errors"
	"time"

	internalauth "sealdrop/internal/auth"
	"sealdrop/internal/models"
	"sealdrop/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService handles account registration and credential checks.
type AuthService struct {
	store *store.Store
}

func NewAuthService(st *store.Store) *AuthService {
	return &AuthService{store: st}
}

// Register validates and creates an account. Store-level uniqueness
// errors pass through for the handler to map.
func (a *AuthService) Register(ctx context.Context, username, email, password string, now time.Time) (*models.User, error) {
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequest(err)
	}
	normalizedEmail, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, badRequest(err)
	}
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, badRequest(err)
	}
	return a.store.CreateUser(ctx, normalized, normalizedEmail, hash, now)
}

// Login verifies credentials and returns the user. Unknown users and
// wrong passwords both yield errInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, errInvalidCredentials
	}
	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	return user, nil
}
