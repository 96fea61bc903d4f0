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

// ImagePresigner hands out upload URLs for tour images.
type ImagePresigner interface {
	PresignTourImageUpload(ctx context.Context, tourID, contentType string) (*models.UploadTarget, error)
}

type TourService struct {
	repomanager repomanager.RepositoryManager
	presigner   ImagePresigner
	logger      logging.Logger
}

// NewTourService builds the service. presigner may be nil, in which case
// image uploads report a dependency failure.
func NewTourService(m repomanager.RepositoryManager, presigner ImagePresigner, logger logging.Logger) *TourService {
	return &TourService{
		repomanager: m,
		presigner:   presigner,
		logger:      logger.With("module", "tours"),
	}
}

// List returns one page of tours. Asking for a page past the last match
// yields common.ErrPageNotFound.
func (s *TourService) List(ctx context.Context, q models.TourQuery) ([]*models.Tour, error) {
	repo := s.repomanager.Tours()

	if q.PageRequested && q.Skip() > 0 {
		total, err := repo.Count(ctx, q.Filters)
		if err != nil {
			return nil, err
		}
		if int64(q.Skip()) >= total {
			return nil, common.ErrPageNotFound
		}
	}

	return repo.List(ctx, q)
}

// Get returns the tour with its guides and reviews expanded. Guides that
// no longer exist are left out.
func (s *TourService) Get(ctx context.Context, id string) (*models.TourDetails, error) {
	tour, err := s.repomanager.Tours().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	names := newNameCache(s.repomanager)

	guides := make([]models.UserSummary, 0, len(tour.Guides))
	for _, gid := range tour.Guides {
		u, err := names.user(ctx, gid)
		if err != nil {
			return nil, err
		}
		if u != nil {
			guides = append(guides, u.Summary())
		}
	}

	reviews, err := s.repomanager.Reviews().ListByTour(ctx, tour.ID)
	if err != nil {
		return nil, err
	}
	names.tours[tour.ID] = tour.Name
	details, err := names.reviews(ctx, reviews)
	if err != nil {
		return nil, err
	}

	return &models.TourDetails{Tour: tour, Guides: guides, Reviews: details}, nil
}

func (s *TourService) Create(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	tour.Normalize()
	if err := tour.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkGuides(ctx, tour.Guides); err != nil {
		return nil, err
	}
	return s.repomanager.Tours().Create(ctx, tour)
}

// Update validates the tour as it would look after upd and then stores
// only the changed fields.
func (s *TourService) Update(ctx context.Context, id string, upd models.TourUpdate) (*models.Tour, error) {
	repo := s.repomanager.Tours()

	upd.Normalize()
	current, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return current, nil
	}

	merged := current.Clone()
	upd.Apply(merged)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if upd.Guides != nil {
		if err := s.checkGuides(ctx, *upd.Guides); err != nil {
			return nil, err
		}
	}

	return repo.Update(ctx, id, upd)
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	return s.repomanager.Tours().Delete(ctx, id)
}

// ImageUploadURL presigns an upload for a new image of an existing tour.
func (s *TourService) ImageUploadURL(ctx context.Context, id, contentType string) (*models.UploadTarget, error) {
	if _, err := s.repomanager.Tours().GetByID(ctx, id); err != nil {
		return nil, err
	}
	if s.presigner == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", common.ErrorDependency)
	}

	target, err := s.presigner.PresignTourImageUpload(ctx, id, contentType)
	if err != nil {
		s.logger.Error(ctx, "presign image upload", "tour_id", id, "error", err)
		return nil, fmt.Errorf("%w: image storage unavailable", common.ErrorDependency)
	}
	return target, nil
}

func (s *TourService) checkGuides(ctx context.Context, ids []string) error {
	repo := s.repomanager.Users()
	for _, id := range ids {
		if _, err := repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: unknown guide %s", common.ErrorValidation, id)
			}
			return err
		}
	}
	return nil
}
