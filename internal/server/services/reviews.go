package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
)

type ReviewService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewReviewService(m repomanager.RepositoryManager, logger logging.Logger) *ReviewService {
	return &ReviewService{repomanager: m, logger: logger.With("module", "reviews")}
}

// List returns all reviews, or those of one tour when tourID is set.
func (s *ReviewService) List(ctx context.Context, tourID string) ([]*models.ReviewDetails, error) {
	repo := s.repomanager.Reviews()

	var (
		reviews []*models.Review
		err     error
	)
	if tourID != "" {
		reviews, err = repo.ListByTour(ctx, tourID)
	} else {
		reviews, err = repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	return newNameCache(s.repomanager).reviews(ctx, reviews)
}

func (s *ReviewService) Get(ctx context.Context, id string) (*models.ReviewDetails, error) {
	r, err := s.repomanager.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := newNameCache(s.repomanager).reviews(ctx, []*models.Review{r})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// Create stores a review by author unless the input names another user.
// The tour must exist.
func (s *ReviewService) Create(ctx context.Context, in models.ReviewInput, author *models.User) (*models.ReviewDetails, error) {
	r := &models.Review{Review: in.Review, Rating: in.Rating, TourID: in.Tour, UserID: in.User}
	if r.UserID == "" && author != nil {
		r.UserID = author.ID
	}
	r.Normalize()
	if err := models.Validate(r); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Tours().GetByID(ctx, r.TourID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: no tour found with that id", common.ErrorNotFound)
		}
		return nil, err
	}
	if author == nil || r.UserID != author.ID {
		if _, err := s.repomanager.Users().GetByID(ctx, r.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("%w: unknown user %s", common.ErrorValidation, r.UserID)
			}
			return nil, err
		}
	}

	created, err := s.repomanager.Reviews().Create(ctx, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "review created", "review_id", created.ID, "tour_id", created.TourID)

	details, err := newNameCache(s.repomanager).reviews(ctx, []*models.Review{created})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}
