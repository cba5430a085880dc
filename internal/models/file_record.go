package models

import "time"

// FileRecord is the persisted metadata for one encrypted file awaiting a
// single download. The download token is the sole retrieval capability; the
// user secret travels to the recipient out-of-band and is never required to
// fetch the ciphertext.
type FileRecord struct {
	ID            string    `json:"id"`
	OriginalName  string    `json:"original_name"`
	MimeType      string    `json:"mime_type"`
	ArtifactKey   string    `json:"-"`
	UserSecret    string    `json:"-"`
	DownloadToken string    `json:"download_token"`
	UploaderID    string    `json:"uploader_id"`
	RecipientID   string    `json:"recipient_id"`
	IsDownloaded  bool      `json:"is_downloaded"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExpiresAt returns the moment the record stops being retrievable.
func (r *FileRecord) ExpiresAt(ttl time.Duration) time.Time {
	return r.CreatedAt.Add(ttl)
}

// Expired reports whether the record's TTL has elapsed at now.
// Expiry applies regardless of download state.
func (r *FileRecord) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return !now.Before(r.ExpiresAt(ttl))
}
