package models

import "time"

// User is a registered account. Email is the notification address used when
// a file is sent to this user; accounts without one can log in but cannot
// receive files.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
