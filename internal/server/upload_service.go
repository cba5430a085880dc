package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sealdrop/internal/artifact"
	internalauth "sealdrop/internal/auth"
	"sealdrop/internal/crypto"
	"sealdrop/internal/models"
	"sealdrop/internal/notify"
	"sealdrop/internal/store"
)

// maxTokenAttempts bounds download token regeneration on a unique
// constraint collision.
const maxTokenAttempts = 5

// artifactKeyForToken derives the at-rest name of the ciphertext from
// its download token. The original filename never reaches disk.
func artifactKeyForToken(token string) string {
	return token + ".enc"
}

// UploadInput is one sender-to-recipient file delivery.
type UploadInput struct {
	Uploader          *models.User
	RecipientUsername string
	OriginalName      string
	MimeType          string
	Content           io.Reader
}

// UploadResult carries the persisted record and the one-time secret.
type UploadResult struct {
	Record   *models.FileRecord
	Secret   string
	Notified bool
}

// UploadService encrypts an incoming file, persists ciphertext and
// record, and mails the decryption secret to the recipient.
type UploadService struct {
	store     *store.Store
	artifacts artifact.Store
	engine    *crypto.Engine
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewUploadService(st *store.Store, artifacts artifact.Store, engine *crypto.Engine, notifier notify.Notifier, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &UploadService{store: st, artifacts: artifacts, engine: engine, notifier: notifier, logger: logger}
}

// Upload runs the full ingest flow. Validation and recipient failures
// come back as apiErrors; notification failure never fails the upload.
func (u *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Uploader == nil {
		return nil, internalError(fmt.Errorf("uploader identity is required"))
	}
	if in.OriginalName == "" {
		return nil, badRequestCode(fmt.Errorf("document filename is required"), ErrCodeMissingRequired)
	}

	recipientName, err := internalauth.NormalizeUsername(in.RecipientUsername)
	if err != nil {
		return nil, badRequestCode(fmt.Errorf("recipient_username: %w", err), ErrCodeInvalidArgument)
	}
	recipient, err := u.store.GetUserByUsername(ctx, recipientName)
	if err != nil {
		return nil, storeFailure(err)
	}
	if recipient == nil {
		return nil, notFoundCode(fmt.Errorf("recipient not found"), ErrCodeRecipientNotFound)
	}
	if recipient.Email == "" {
		return nil, badRequestCode(fmt.Errorf("recipient has no notification address"), ErrCodeRecipientNoEmail)
	}

	plaintext, err := io.ReadAll(in.Content)
	if err != nil {
		return nil, badRequest(fmt.Errorf("read upload: %w", err))
	}
	ciphertext, err := u.engine.Encrypt(plaintext)
	if err != nil {
		return nil, internalError(fmt.Errorf("encrypt payload: %w", err))
	}
	secret, err := crypto.NewUserSecret()
	if err != nil {
		return nil, internalError(err)
	}

	record, err := u.persistWithFreshToken(ctx, in, recipient, secret, ciphertext)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Record: record, Secret: secret}
	if err := u.notifier.SendSecret(ctx, recipient.Email, in.Uploader.Username, secret); err != nil {
		u.logger.Warn("secret notification failed",
			"record_id", record.ID, "recipient", recipient.Username, "error", err)
	} else {
		result.Notified = true
	}
	return result, nil
}

// persistWithFreshToken stores record and ciphertext under a new
// download token, regenerating on the rare token collision. The record
// insert comes first: a colliding token fails on the unique constraint
// before any byte is written, so an existing record's artifact is
// never touched.
func (u *UploadService) persistWithFreshToken(ctx context.Context, in UploadInput, recipient *models.User, secret string, ciphertext []byte) (*models.FileRecord, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := crypto.NewDownloadToken()
		if err != nil {
			return nil, internalError(err)
		}

		record := &models.FileRecord{
			ID:            uuid.New().String(),
			OriginalName:  in.OriginalName,
			MimeType:      in.MimeType,
			ArtifactKey:   artifactKeyForToken(token),
			UserSecret:    secret,
			DownloadToken: token,
			UploaderID:    in.Uploader.ID,
			RecipientID:   recipient.ID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := u.store.CreateFileRecord(ctx, record); err != nil {
			if errors.Is(err, store.ErrDuplicateToken) {
				u.logger.Warn("download token collision, regenerating", "attempt", attempt+1)
				continue
			}
			return nil, storeFailure(err)
		}

		if _, err := u.artifacts.Put(ctx, record.ArtifactKey, bytes.NewReader(ciphertext)); err != nil {
			if delErr := u.store.DeleteFileRecord(ctx, record.ID); delErr != nil {
				u.logger.Error("remove record after failed artifact write", "record_id", record.ID, "error", delErr)
			}
			return nil, internalError(fmt.Errorf("store artifact: %w", err))
		}
		return record, nil
	}
	return nil, internalError(fmt.Errorf("could not allocate a unique download token"))
}
