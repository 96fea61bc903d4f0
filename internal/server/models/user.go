package models

import (
	"strings"
	"time"
)

// User is a registered account. PasswordHash and the reset-token fields
// are never serialized.
type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Photo               string     `json:"photo,omitempty"`
	PasswordHash        string     `json:"-"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// PasswordChangedAfter reports whether the password was changed strictly
// after iat (Unix seconds). Tokens issued before that moment are stale.
func (u *User) PasswordChangedAfter(iat int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat
}

// HasActiveResetToken reports whether a reset token is pending and has not
// expired at now.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
}

// Summary is the public projection used when a user is embedded elsewhere.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo}
}

// UserSummary is how guides appear inside a tour.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
}

// SignupInput is the accepted registration payload.
type SignupInput struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Photo    string `json:"photo" validate:"omitempty,max=512"`
}

// LoginInput is the accepted login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordInput carries a new password for the reset flow.
type PasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserUpdate is a partial update of profile fields. Password is only
// decoded so that the request can be rejected.
type UserUpdate struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Photo    *string `json:"photo" validate:"omitempty,max=512"`
	Password *string `json:"password"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Photo == nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Photo != nil {
		user.Photo = *u.Photo
	}
}

// NormalizeEmail lowercases and trims an address. Emails are stored and
// compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
