// Package tours stores tours and their guide references.
package tours

import (
	"context"

	"github.com/dmitrijs2005/tours/internal/server/models"
)

// Repository is the tour store. Missing records return
// common.ErrorNotFound and a taken name returns common.ErrorConflict.
type Repository interface {
	Create(ctx context.Context, tour *models.Tour) (*models.Tour, error)
	GetByID(ctx context.Context, id string) (*models.Tour, error)
	// List applies q.Filters, q.Sort and the page window.
	List(ctx context.Context, q models.TourQuery) ([]*models.Tour, error)
	Count(ctx context.Context, filters []models.Filter) (int64, error)
	Update(ctx context.Context, id string, upd models.TourUpdate) (*models.Tour, error)
	Delete(ctx context.Context, id string) error
}
