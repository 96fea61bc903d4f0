package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/dbx"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
)

const reviewColumns = `id, review, rating, tour_id, user_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	query :=
		`INSERT INTO reviews (id, review, rating, tour_id, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	for _, ref := range []string{review.TourID, review.UserID} {
		if _, err := uuid.Parse(ref); err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid id", common.ErrorValidation, ref)
		}
	}

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id, review.Review, review.Rating, review.TourID, review.UserID).Scan(&review.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	review.ID = id
	return review, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	review := &models.Review{}
	err := r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id).
		Scan(&review.ID, &review.Review, &review.Rating, &review.TourID, &review.UserID, &review.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Review, error) {
	return r.query(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at, id`)
}

func (r *PostgresRepository) ListByTour(ctx context.Context, tourID string) ([]*models.Review, error) {
	if _, err := uuid.Parse(tourID); err != nil {
		return []*models.Review{}, nil
	}
	return r.query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE tour_id = $1 ORDER BY created_at, id`, tourID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Review, 0)
	for rows.Next() {
		review := &models.Review{}
		if err := rows.Scan(&review.ID, &review.Review, &review.Rating, &review.TourID, &review.UserID, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
