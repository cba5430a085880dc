// Package api defines the JSON wire types of the sealdrop HTTP API.
package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// RegisterResponse confirms account creation.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// UploadResponse is returned after a successful upload. The secret is
// shown to the sender exactly once; it is also mailed to the recipient
// when a mail transport is configured.
type UploadResponse struct {
	Message       string `json:"message"`
	DownloadToken string `json:"download_token"`
	Secret        string `json:"secret"`
	OriginalName  string `json:"original_name"`
}

// InboxEntry describes one pending file awaiting the recipient. FileID
// is the download token, not the record ID.
type InboxEntry struct {
	FileID       string    `json:"file_id"`
	OriginalName string    `json:"original_name"`
	DateSent     time.Time `json:"date_sent"`
}

// InboxResponse lists files pending for the authenticated recipient.
type InboxResponse struct {
	Files []InboxEntry `json:"files"`
}

// DecryptRequest asks the server to decrypt a downloaded payload. Data
// is base64-encoded ciphertext; the secret must match the one issued
// at upload time. OriginalName is the filename to restore and is
// required.
type DecryptRequest struct {
	Data         string `json:"data"`
	Secret       string `json:"secret"`
	OriginalName string `json:"original_name"`
}

// DecryptResponse carries the base64-encoded plaintext and echoes the
// restored filename.
type DecryptResponse struct {
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}

// SweepResponse reports the outcome of an expiry sweep.
type SweepResponse struct {
	RemovedRecords   int      `json:"removed_records"`
	RemovedArtifacts int      `json:"removed_artifacts"`
	StuckRecords     []string `json:"stuck_records,omitempty"`
	Failures         int      `json:"failures,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}
