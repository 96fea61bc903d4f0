package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
)

// nameCache resolves references for one request. Missing records are
// cached as absent.
type nameCache struct {
	rm    repomanager.RepositoryManager
	users map[string]*models.User
	tours map[string]string
}

func newNameCache(rm repomanager.RepositoryManager) *nameCache {
	return &nameCache{
		rm:    rm,
		users: make(map[string]*models.User),
		tours: make(map[string]string),
	}
}

// user returns nil without error when id does not exist.
func (c *nameCache) user(ctx context.Context, id string) (*models.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := c.rm.Users().GetByID(ctx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	c.users[id] = u
	return u, nil
}

func (c *nameCache) tour(ctx context.Context, id string) (string, error) {
	if name, ok := c.tours[id]; ok {
		return name, nil
	}
	var name string
	t, err := c.rm.Tours().GetByID(ctx, id)
	switch {
	case err == nil:
		name = t.Name
	case !errors.Is(err, common.ErrorNotFound):
		return "", err
	}
	c.tours[id] = name
	return name, nil
}

func (c *nameCache) reviews(ctx context.Context, reviews []*models.Review) ([]*models.ReviewDetails, error) {
	out := make([]*models.ReviewDetails, 0, len(reviews))
	for _, r := range reviews {
		d := &models.ReviewDetails{
			ID:        r.ID,
			Review:    r.Review,
			Rating:    r.Rating,
			Tour:      models.Ref{ID: r.TourID},
			User:      models.Ref{ID: r.UserID},
			CreatedAt: r.CreatedAt,
		}

		u, err := c.user(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			d.User.Name = u.Name
		}

		if d.Tour.Name, err = c.tour(ctx, r.TourID); err != nil {
			return nil, err
		}

		out = append(out, d)
	}
	return out, nil
}
