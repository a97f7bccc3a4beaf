package domain

import "time"

// User represents a registered author of the platform.
// PasswordHash is never serialized to API responses.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
