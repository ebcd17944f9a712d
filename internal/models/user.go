package models

import (
	"time"
)

// User represents a marketplace member. Name is the natural key.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"` // Null for legacy records created before passwords existed
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether a credential hash is stored for the user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
