package tours

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/dbx"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// columns maps filterable JSON field names to SQL columns.
var columns = map[string]string{
	"name":            "name",
	"difficulty":      "difficulty",
	"duration":        "duration",
	"maxGroupSize":    "max_group_size",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"price":           "price",
	"priceDiscount":   "price_discount",
	"createdAt":       "created_at",
}

var operators = map[models.FilterOp]string{
	models.OpEq:  "=",
	models.OpGt:  ">",
	models.OpGte: ">=",
	models.OpLt:  "<",
	models.OpLte: "<=",
}

const tourColumns = `t.id, t.name, t.duration, t.max_group_size, t.difficulty, t.ratings_average, t.ratings_quantity,
	t.price, t.price_discount, t.summary, t.description, t.image_cover, t.images, t.start_dates,
	t.start_location, t.locations, t.created_at,
	COALESCE((SELECT json_agg(g.user_id ORDER BY g.position) FROM tour_guides g WHERE g.tour_id = t.id), '[]')`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the tour and its guide rows in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	query :=
		`INSERT INTO tours (id, name, duration, max_group_size, difficulty, ratings_average, ratings_quantity,
		   price, price_discount, summary, description, image_cover, images, start_dates, start_location, locations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING created_at
		 `

	docs, err := encodeDocuments(tour)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx, query,
			id, tour.Name, tour.Duration, tour.MaxGroupSize, tour.Difficulty, tour.RatingsAverage, tour.RatingsQuantity,
			tour.Price, tour.PriceDiscount, tour.Summary, tour.Description, tour.ImageCover,
			docs.images, docs.startDates, docs.startLocation, docs.locations,
		).Scan(&tour.CreatedAt)
		if err != nil {
			return err
		}
		return insertGuides(ctx, tx, id, tour.Guides)
	})
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	tour.ID = id
	return tour, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	tour, err := scanTour(r.db.QueryRowContext(ctx, `SELECT `+tourColumns+` FROM tours t WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tour, nil
}

func (r *PostgresRepository) List(ctx context.Context, q models.TourQuery) ([]*models.Tour, error) {
	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tourColumns + ` FROM tours t` + where + buildOrderBy(q.Sort)
	args = append(args, q.Limit, q.Skip())
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Tour, 0)
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filters []models.Filter) (int64, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours t`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Update writes only the fields set in upd. A new guide list replaces the
// old one inside the same transaction.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.TourUpdate) (*models.Tour, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	sets, args, err := buildSet(upd)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var res sql.Result
		var err error
		if len(sets) > 0 {
			args = append(args, id)
			query := fmt.Sprintf(`UPDATE tours SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
			res, err = tx.ExecContext(ctx, query, args...)
		} else {
			res, err = tx.ExecContext(ctx, `UPDATE tours SET id = id WHERE id = $1`, id)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrorNotFound
		}

		if upd.Guides == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tour_guides WHERE tour_id = $1`, id); err != nil {
			return err
		}
		return insertGuides(ctx, tx, id, *upd.Guides)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrorNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM tour_guides WHERE tour_id = $1`, id)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func insertGuides(ctx context.Context, tx dbx.DBTX, tourID string, guides []string) error {
	for i, g := range guides {
		if _, err := uuid.Parse(g); err != nil {
			return fmt.Errorf("%w: guide %q is not a valid id", common.ErrorValidation, g)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tour_guides (tour_id, user_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			tourID, g, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func buildWhere(filters []models.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		col, ok := columns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot filter on %s", common.ErrorValidation, f.Field)
		}
		op, ok := operators[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown operator %s", common.ErrorValidation, f.Op)
		}
		args = append(args, f.Value)
		conds = append(conds, fmt.Sprintf("t.%s %s $%d", col, op, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildOrderBy(sort []models.SortField) string {
	parts := make([]string, 0, len(sort)+1)
	for _, s := range sort {
		col, ok := columns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, "t."+col+" "+dir)
	}
	// stable pagination
	parts = append(parts, "t.id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func buildSet(upd models.TourUpdate) ([]string, []any, error) {
	var sets []string
	var args []any
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addJSON := func(column string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", column, err)
		}
		add(column, string(b))
		return nil
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	if upd.MaxGroupSize != nil {
		add("max_group_size", *upd.MaxGroupSize)
	}
	if upd.Difficulty != nil {
		add("difficulty", *upd.Difficulty)
	}
	if upd.RatingsAverage != nil {
		add("ratings_average", *upd.RatingsAverage)
	}
	if upd.RatingsQuantity != nil {
		add("ratings_quantity", *upd.RatingsQuantity)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.PriceDiscount != nil {
		add("price_discount", *upd.PriceDiscount)
	}
	if upd.Summary != nil {
		add("summary", *upd.Summary)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ImageCover != nil {
		add("image_cover", *upd.ImageCover)
	}
	if upd.Images != nil {
		if err := addJSON("images", *upd.Images); err != nil {
			return nil, nil, err
		}
	}
	if upd.StartDates != nil {
		if err := addJSON("start_dates", *upd.StartDates); err != nil {
			return nil, nil, err
		}
	}
	if upd.StartLocation != nil {
		if err := addJSON("start_location", upd.StartLocation); err != nil {
			return nil, nil, err
		}
	}
	if upd.Locations != nil {
		if err := addJSON("locations", *upd.Locations); err != nil {
			return nil, nil, err
		}
	}
	return sets, args, nil
}

type documents struct {
	images        string
	startDates    string
	startLocation *string
	locations     string
}

func encodeDocuments(t *models.Tour) (*documents, error) {
	var d documents
	var err error
	if d.images, err = encodeJSON(nonNil(t.Images)); err != nil {
		return nil, err
	}
	if d.startDates, err = encodeJSON(nonNil(t.StartDates)); err != nil {
		return nil, err
	}
	if d.locations, err = encodeJSON(nonNil(t.Locations)); err != nil {
		return nil, err
	}
	if t.StartLocation != nil {
		s, err := encodeJSON(t.StartLocation)
		if err != nil {
			return nil, err
		}
		d.startLocation = &s
	}
	return &d, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tour document: %w", err)
	}
	return string(b), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (*models.Tour, error) {
	var t models.Tour
	var discount sql.NullFloat64
	var images, startDates, locations, guides, startLocation []byte

	err := row.Scan(&t.ID, &t.Name, &t.Duration, &t.MaxGroupSize, &t.Difficulty, &t.RatingsAverage, &t.RatingsQuantity,
		&t.Price, &discount, &t.Summary, &t.Description, &t.ImageCover, &images, &startDates,
		&startLocation, &locations, &t.CreatedAt, &guides)
	if err != nil {
		return nil, err
	}

	if discount.Valid {
		t.PriceDiscount = &discount.Float64
	}
	if err := decodeJSON(images, &t.Images); err != nil {
		return nil, err
	}
	if err := decodeJSON(startDates, &t.StartDates); err != nil {
		return nil, err
	}
	if err := decodeJSON(locations, &t.Locations); err != nil {
		return nil, err
	}
	if err := decodeJSON(guides, &t.Guides); err != nil {
		return nil, err
	}
	if len(startLocation) > 0 {
		t.StartLocation = &models.Location{}
		if err := json.Unmarshal(startLocation, t.StartLocation); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func decodeJSON[T any](b []byte, dst *[]T) error {
	if len(b) == 0 {
		*dst = []T{}
		return nil
	}
	return json.Unmarshal(b, dst)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
