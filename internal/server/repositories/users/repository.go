// Package users stores user accounts. Implementations exist for Postgres
// and MongoDB; the in-memory one lives in the memory package.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tours/internal/server/models"
)

// Repository is the user store. Lookups of a missing record return
// common.ErrorNotFound; a taken email returns common.ErrorConflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, digest string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// ResetPassword stores a new hash and change time and clears the reset
	// token, in one write that only applies while the stored token digest
	// matches and is unexpired at changedAt. Otherwise it returns
	// common.ErrInvalidOrExpiredResetToken, so a token is redeemed once.
	ResetPassword(ctx context.Context, id, digest, passwordHash string, changedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
