package entity

import (
	"time"
)

// DefaultAvatar is the sentinel avatar reference used when a user has
// never uploaded a picture.
const DefaultAvatar = "default.png"

// User is the aggregate root for the account domain.
// PasswordHash is a bcrypt string and is only ever compared through
// the password helpers, never directly.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	AvatarRef    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Avatar returns the stored avatar reference, falling back to the
// default image when none was set.
func (u *User) Avatar() string {
	if u.AvatarRef == "" {
		return DefaultAvatar
	}
	return u.AvatarRef
}
