package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sealdrop/internal/models"
)

// ErrDuplicateToken is returned when a download token collides with a live
// record. Callers regenerate the token and retry; with 256-bit tokens a
// collision in practice means a broken generator.
var ErrDuplicateToken = errors.New("download token already exists")

const fileRecordColumns = "id, original_name, mime_type, artifact_key, user_secret, download_token, uploader_id, recipient_id, is_downloaded, created_at"

// CreateFileRecord inserts one file record. The token must be unique among
// all stored records, live or claimed.
func (s *Store) CreateFileRecord(ctx context.Context, record *models.FileRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if strings.TrimSpace(record.DownloadToken) == "" {
		return fmt.Errorf("download token is required")
	}
	if strings.TrimSpace(record.RecipientID) == "" {
		return fmt.Errorf("recipient id is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	downloaded := 0
	if record.IsDownloaded {
		downloaded = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_records (`+fileRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.OriginalName,
		record.MimeType,
		record.ArtifactKey,
		record.UserSecret,
		record.DownloadToken,
		nullIfEmpty(strings.TrimSpace(record.UploaderID)),
		record.RecipientID,
		downloaded,
		formatTime(record.CreatedAt),
	)
	if isUniqueConstraint(err, "file_records.download_token") {
		return ErrDuplicateToken
	}
	return err
}

// GetFileRecord returns one record by id, or nil when absent.
func (s *Store) GetFileRecord(ctx context.Context, id string) (*models.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileRecordColumns+` FROM file_records WHERE id = ?`, id)
	return scanFileRecord(row)
}

// FindPendingByToken returns the unclaimed, unexpired record for a token, or
// nil. An expired token never authorizes a claim, so the TTL cutoff is part
// of the lookup itself.
func (s *Store) FindPendingByToken(ctx context.Context, token string, ttl time.Duration, now time.Time) (*models.FileRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileRecordColumns+`
		FROM file_records
		WHERE download_token = ? AND is_downloaded = 0 AND created_at > ?
		LIMIT 1
	`, token, formatTime(expiryCutoff(ttl, now)))
	return scanFileRecord(row)
}

// ClaimFileRecord is the atomic compare-and-set that flips is_downloaded
// false to true. It reports whether this call won; a claimed record can
// never be claimed again by anyone, including the winner on retry.
func (s *Store) ClaimFileRecord(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE file_records SET is_downloaded = 1 WHERE id = ? AND is_downloaded = 0
	`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteFileRecord deletes one record by id.
func (s *Store) DeleteFileRecord(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM file_records WHERE id = ?", id)
	return err
}

// ListPendingByRecipient lists unclaimed, unexpired records for a recipient,
// newest first. This backs the inbox view.
func (s *Store) ListPendingByRecipient(ctx context.Context, recipientID string, ttl time.Duration, now time.Time) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileRecordColumns+`
		FROM file_records
		WHERE recipient_id = ? AND is_downloaded = 0 AND created_at > ?
		ORDER BY created_at DESC
	`, recipientID, formatTime(expiryCutoff(ttl, now)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

// ListExpired lists records whose TTL has elapsed, regardless of download
// state, oldest first. The sweep deletes them along with their artifacts.
func (s *Store) ListExpired(ctx context.Context, ttl time.Duration, now time.Time, limit int) ([]models.FileRecord, error) {
	if ttl <= 0 {
		return []models.FileRecord{}, nil
	}
	query := `
		SELECT ` + fileRecordColumns + `
		FROM file_records
		WHERE created_at <= ?
		ORDER BY created_at ASC`
	args := []any{formatTime(now.Add(-ttl))}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

// ListClaimed lists claimed records that were never cleaned up. A record in
// this state past the claim-to-cleanup window is stuck: its stream failed
// and there is no path back to pending.
func (s *Store) ListClaimed(ctx context.Context) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileRecordColumns+`
		FROM file_records
		WHERE is_downloaded = 1
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

func expiryCutoff(ttl time.Duration, now time.Time) time.Time {
	if ttl <= 0 {
		// No TTL configured: every record is younger than the zero time.
		return time.Time{}
	}
	return now.Add(-ttl)
}

func collectFileRecords(rows *sql.Rows) ([]models.FileRecord, error) {
	records := []models.FileRecord{}
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanFileRecord(scanner interface {
	Scan(dest ...any) error
}) (*models.FileRecord, error) {
	record := models.FileRecord{}

	var uploaderID sql.NullString
	var downloaded int
	var createdAt string

	err := scanner.Scan(
		&record.ID,
		&record.OriginalName,
		&record.MimeType,
		&record.ArtifactKey,
		&record.UserSecret,
		&record.DownloadToken,
		&uploaderID,
		&record.RecipientID,
		&downloaded,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	record.UploaderID = uploaderID.String
	record.IsDownloaded = downloaded != 0

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = parsedCreated

	return &record, nil
}
