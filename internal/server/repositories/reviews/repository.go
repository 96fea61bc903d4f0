// Package reviews stores tour reviews.
package reviews

import (
	"context"

	"github.com/dmitrijs2005/tours/internal/server/models"
)

// Repository is the review store. Lists are ordered oldest first.
type Repository interface {
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	GetByID(ctx context.Context, id string) (*models.Review, error)
	List(ctx context.Context) ([]*models.Review, error)
	ListByTour(ctx context.Context, tourID string) ([]*models.Review, error)
}
