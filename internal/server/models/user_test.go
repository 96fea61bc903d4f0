package models

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestUser_PasswordChangedAfter(t *testing.T) {
	changed := time.Unix(1_700_000_100, 900_000_000)
	u := &User{PasswordChangedAt: &changed}

	assert.True(t, u.PasswordChangedAfter(1_700_000_099))
	assert.False(t, u.PasswordChangedAfter(1_700_000_100), "same second is not after")
	assert.False(t, u.PasswordChangedAfter(1_700_000_101))
	assert.False(t, (&User{}).PasswordChangedAfter(0), "never changed")
}

func TestUser_HasActiveResetToken(t *testing.T) {
	now := time.Now()
	hash := "digest"
	future := now.Add(time.Minute)
	past := now.Add(-time.Second)

	assert.True(t, (&User{ResetTokenHash: &hash, ResetTokenExpiresAt: &future}).HasActiveResetToken(now))
	assert.False(t, (&User{ResetTokenHash: &hash, ResetTokenExpiresAt: &past}).HasActiveResetToken(now))
	assert.False(t, (&User{ResetTokenExpiresAt: &future}).HasActiveResetToken(now))
}

func TestSignupInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		in    SignupInput
		valid bool
	}{
		{"ok", SignupInput{Email: "jonas@example.com", Password: "pass1234"}, true},
		{"missing email", SignupInput{Password: "pass1234"}, false},
		{"bad email", SignupInput{Email: "jonas", Password: "pass1234"}, false},
		{"short password", SignupInput{Email: "jonas@example.com", Password: "short"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, common.ErrorValidation), "got %v", err)
		})
	}
}

func TestUserUpdate(t *testing.T) {
	assert.True(t, UserUpdate{}.Empty())
	pw := "x"
	assert.True(t, UserUpdate{Password: &pw}.Empty(), "password alone is not a profile change")

	name := "Jonas"
	u := &User{Name: "old", Email: "a@b.c"}
	UserUpdate{Name: &name}.Apply(u)
	assert.Equal(t, "Jonas", u.Name)
	assert.Equal(t, "a@b.c", u.Email)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jonas@example.com", NormalizeEmail("  Jonas@Example.COM "))
}
