package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/google/uuid"
)

type TourRepository struct {
	s *Store
}

func NewTourRepository(s *Store) *TourRepository {
	return &TourRepository{s: s}
}

func (r *TourRepository) nameTaken(name, exceptID string) bool {
	for id, t := range r.s.tours {
		if t.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(tour.Name, "") {
		return nil, common.ErrorConflict
	}

	stored := tour.Clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = r.s.stamp()
	r.s.tours[stored.ID] = stored

	tour.ID = stored.ID
	tour.CreatedAt = stored.CreatedAt
	return tour, nil
}

func (r *TourRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tours[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t.Clone(), nil
}

func (r *TourRepository) List(ctx context.Context, q models.TourQuery) ([]*models.Tour, error) {
	matched, err := r.match(q.Filters)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], q.Sort)
	})

	skip := q.Skip()
	if skip >= len(matched) {
		return []*models.Tour{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && skip+q.Limit < end {
		end = skip + q.Limit
	}
	return matched[skip:end], nil
}

func (r *TourRepository) Count(ctx context.Context, filters []models.Filter) (int64, error) {
	matched, err := r.match(filters)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *TourRepository) match(filters []models.Filter) ([]*models.Tour, error) {
	for _, f := range filters {
		if _, ok := models.TourFields[f.Field]; !ok {
			return nil, fmt.Errorf("%w: cannot filter on %s", common.ErrorValidation, f.Field)
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Tour, 0, len(r.s.tours))
	for _, t := range r.s.tours {
		ok := true
		for _, f := range filters {
			if !matches(t, f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (r *TourRepository) Update(ctx context.Context, id string, upd models.TourUpdate) (*models.Tour, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tours[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Name != nil && r.nameTaken(*upd.Name, id) {
		return nil, common.ErrorConflict
	}
	upd.Apply(t)
	return t.Clone(), nil
}

func (r *TourRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tours[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.tours, id)
	return nil
}

// fieldValue returns the value of a filterable field; ok is false when the
// field is unset (a missing priceDiscount never matches, like a SQL NULL).
func fieldValue(t *models.Tour, field string) (any, bool) {
	switch field {
	case "name":
		return t.Name, true
	case "difficulty":
		return t.Difficulty, true
	case "duration":
		return float64(t.Duration), true
	case "maxGroupSize":
		return float64(t.MaxGroupSize), true
	case "ratingsAverage":
		return t.RatingsAverage, true
	case "ratingsQuantity":
		return float64(t.RatingsQuantity), true
	case "price":
		return t.Price, true
	case "priceDiscount":
		if t.PriceDiscount == nil {
			return nil, false
		}
		return *t.PriceDiscount, true
	case "createdAt":
		return t.CreatedAt, true
	}
	return nil, false
}

// compare returns -1, 0 or 1. Values of different types compare as equal.
func compare(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, ok := toFloat(b)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func matches(t *models.Tour, f models.Filter) bool {
	v, ok := fieldValue(t, f.Field)
	if !ok {
		return false
	}
	c := compare(v, f.Value)
	switch f.Op {
	case models.OpEq:
		return c == 0
	case models.OpGt:
		return c > 0
	case models.OpGte:
		return c >= 0
	case models.OpLt:
		return c < 0
	case models.OpLte:
		return c <= 0
	}
	return false
}

// less orders by the sort keys, then by id for a stable page order.
// Unset values sort first, as in an ascending Mongo sort.
func less(a, b *models.Tour, keys []models.SortField) bool {
	for _, k := range keys {
		av, aok := fieldValue(a, k.Field)
		bv, bok := fieldValue(b, k.Field)
		var c int
		switch {
		case !aok && !bok:
			c = 0
		case !aok:
			c = -1
		case !bok:
			c = 1
		default:
			c = compare(av, bv)
		}
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.ID < b.ID
}
