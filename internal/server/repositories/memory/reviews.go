package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
)

type ReviewRepository struct {
	s *Store
}

func NewReviewRepository(s *Store) *ReviewRepository {
	return &ReviewRepository{s: s}
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *review
	stored.ID = uuid.NewString()
	stored.CreatedAt = r.s.stamp()
	r.s.reviews[stored.ID] = &stored

	review.ID = stored.ID
	review.CreatedAt = stored.CreatedAt
	return review, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *rv
	return &c, nil
}

func (r *ReviewRepository) List(ctx context.Context) ([]*models.Review, error) {
	return r.filter(func(*models.Review) bool { return true }), nil
}

func (r *ReviewRepository) ListByTour(ctx context.Context, tourID string) ([]*models.Review, error) {
	return r.filter(func(rv *models.Review) bool { return rv.TourID == tourID }), nil
}

func (r *ReviewRepository) filter(keep func(*models.Review) bool) []*models.Review {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Review, 0)
	for _, rv := range r.s.reviews {
		if keep(rv) {
			c := *rv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
