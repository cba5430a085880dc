package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sealdrop/internal/models"
)

// ErrUsernameTaken and ErrEmailTaken report registration conflicts.
var (
	ErrUsernameTaken = errors.New("username already in use")
	ErrEmailTaken    = errors.New("email already in use")
)

const (
	userIDPrefix      = "us"
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	userIDHashLength  = 8
	userIDMaxAttempts = 20
)

const userColumns = "id, username, email, password_hash, created_at, updated_at"

// CreateUser inserts one user. Username must be normalized by the caller.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	email = strings.TrimSpace(email)

	id, err := s.nextUserID(ctx)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, username, nullIfEmpty(email), passwordHash, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraint(err, "users.username") {
			return nil, ErrUsernameTaken
		}
		if isUniqueConstraint(err, "users.email") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// GetUserByUsername returns one user by username, or nil when absent.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1
	`, username)
	return scanUser(row)
}

// GetUserByID returns one user by id, or nil when absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1
	`, id)
	return scanUser(row)
}

func (s *Store) nextUserID(ctx context.Context) (string, error) {
	for i := 0; i < userIDMaxAttempts; i++ {
		hash, err := randomBase36(userIDHashLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", userIDPrefix, hash)

		var exists int
		err = s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("unable to generate unique user id")
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, error) {
	user := models.User{}

	var email sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&user.ID, &user.Username, &email, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	user.Email = email.String

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = parsedCreated
	user.UpdatedAt = parsedUpdated

	return &user, nil
}
