package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"sealdrop/internal/artifact"
	"sealdrop/internal/crypto"
	"sealdrop/internal/models"
	"sealdrop/internal/store"
)

// DownloadService authorizes single-use downloads and removes the
// delivered payload afterwards.
type DownloadService struct {
	store     *store.Store
	artifacts artifact.Store
	engine    *crypto.Engine
	ttl       time.Duration
	logger    *slog.Logger
}

func NewDownloadService(st *store.Store, artifacts artifact.Store, engine *crypto.Engine, ttl time.Duration, logger *slog.Logger) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadService{store: st, artifacts: artifacts, engine: engine, ttl: ttl, logger: logger}
}

// Resolve claims the record behind token and opens its ciphertext for
// streaming. recipientID, when non-empty, must match the record; a
// mismatch is the same not-found as an unknown or spent token. The
// claim happens before any byte is streamed, so a second caller can
// never win.
func (d *DownloadService) Resolve(ctx context.Context, token, recipientID string) (*models.FileRecord, io.ReadCloser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, fileNotFound()
	}

	now := time.Now().UTC()
	record, err := d.store.FindPendingByToken(ctx, token, d.ttl, now)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if record == nil {
		return nil, nil, fileNotFound()
	}
	if recipientID != "" && record.RecipientID != recipientID {
		return nil, nil, fileNotFound()
	}

	won, err := d.store.ClaimFileRecord(ctx, record.ID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if !won {
		return nil, nil, fileNotFound()
	}

	rc, err := d.artifacts.Open(ctx, record.ArtifactKey)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			d.logger.Error("artifact missing for claimed record",
				"record_id", record.ID, "key", record.ArtifactKey)
			return nil, nil, fileNotFound()
		}
		return nil, nil, internalError(fmt.Errorf("open artifact: %w", err))
	}
	return record, rc, nil
}

// Cleanup removes the artifact and record after a delivered stream.
// Failures are logged and swallowed; the payload was already handed
// out and the claim keeps the token dead.
func (d *DownloadService) Cleanup(ctx context.Context, record *models.FileRecord) {
	if err := d.artifacts.Delete(ctx, record.ArtifactKey); err != nil {
		d.logger.Error("cleanup: delete artifact", "record_id", record.ID, "key", record.ArtifactKey, "error", err)
	}
	if err := d.store.DeleteFileRecord(ctx, record.ID); err != nil {
		d.logger.Error("cleanup: delete record", "record_id", record.ID, "error", err)
	}
}

// Decrypt recovers plaintext from a base64 payload. Secret and
// original name must be present; beyond that, every failure mode
// collapses into one generic error so callers learn nothing about
// keys or padding.
func (d *DownloadService) Decrypt(data, secret, originalName string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, badRequestCode(fmt.Errorf("secret is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(originalName) == "" {
		return nil, badRequestCode(fmt.Errorf("original_name is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(data) == "" {
		return nil, badRequestCode(fmt.Errorf("data is required"), ErrCodeMissingRequired)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, badRequestCode(fmt.Errorf("data is not valid base64"), ErrCodeInvalidBase64)
	}
	plaintext, err := d.engine.Decrypt(ciphertext)
	if err != nil {
		return nil, badRequestCode(crypto.ErrDecrypt, ErrCodeDecryptFailed)
	}
	return plaintext, nil
}
