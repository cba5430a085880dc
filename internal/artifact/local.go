package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts as individual files under one root directory.
// Writes go through a tmp file and a rename so a crash mid-upload never
// leaves a readable partial artifact.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local store rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("artifact root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o700); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Put streams r into a tmp file and renames it into place under key.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("artifact store is not configured")
	}
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := s.pathFromKey(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

// Open returns a reader for the artifact under key.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("artifact store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Exists reports whether an artifact file is present under key.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("artifact store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the artifact file. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("artifact store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("artifact key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("artifact key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == "tmp" || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." || strings.ContainsRune(clean, filepath.Separator) {
		return "", fmt.Errorf("invalid artifact key")
	}
	return filepath.Join(s.root, clean), nil
}
