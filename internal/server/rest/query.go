package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
)

var reservedParams = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// parsePaging returns 0 for values that should fall back to the default and
// an error for numbers above upper.
func parsePaging(raw string, upper int) (int, error) {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("must not exceed %d", upper)
	}
	if err != nil || n < 1 {
		return 0, nil
	}
	if n > upper {
		return 0, fmt.Errorf("must not exceed %d", upper)
	}
	return n, nil
}

// parseTourQuery reads filters (field=v or field[op]=v), sort, page, limit
// and fields from the query string. Unknown fields and sort keys are
// ignored.
func parseTourQuery(values url.Values) (models.TourQuery, error) {
	q := models.NewTourQuery()

	for key, vals := range values {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}

		field, op := key, models.OpEq
		if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
			field, op = key[:i], models.FilterOp(key[i+1:len(key)-1])
		}

		kind, ok := models.TourFields[field]
		if !ok {
			continue
		}
		switch op {
		case models.OpEq, models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		default:
			return q, fmt.Errorf("%w: unsupported operator %q", common.ErrorValidation, op)
		}

		for _, raw := range vals {
			v, err := parseFilterValue(kind, raw)
			if err != nil {
				return q, fmt.Errorf("%w: invalid value for %s", common.ErrorValidation, field)
			}
			q.Filters = append(q.Filters, models.Filter{Field: field, Op: op, Value: v})
		}
	}

	if s := values.Get("sort"); s != "" {
		var sort []models.SortField
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			desc := strings.HasPrefix(part, "-")
			name := strings.TrimPrefix(part, "-")
			if _, ok := models.TourFields[name]; ok {
				sort = append(sort, models.SortField{Field: name, Desc: desc})
			}
		}
		if len(sort) > 0 {
			q.Sort = sort
		}
	}

	if values.Has("page") {
		q.PageRequested = true
		p, err := parsePaging(values.Get("page"), models.MaxPage)
		if err != nil {
			return q, fmt.Errorf("%w: page %v", common.ErrorValidation, err)
		}
		if p > 0 {
			q.Page = p
		}
	}
	l, err := parsePaging(values.Get("limit"), models.MaxLimit)
	if err != nil {
		return q, fmt.Errorf("%w: limit %v", common.ErrorValidation, err)
	}
	if l > 0 {
		q.Limit = l
	}

	if f := values.Get("fields"); f != "" {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				q.Fields = append(q.Fields, name)
			}
		}
	}

	return q, nil
}

func parseFilterValue(kind models.FieldKind, raw string) (any, error) {
	switch kind {
	case models.KindNumber:
		return strconv.ParseFloat(raw, 64)
	case models.KindTime:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return time.Parse(time.DateOnly, raw)
	default:
		return raw, nil
	}
}

// project keeps only the named fields of each tour plus its id. Names that
// are not tour fields are dropped.
func project(tours []*models.Tour, fields []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(tours))
	for _, t := range tours {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		var full map[string]any
		if err := json.Unmarshal(b, &full); err != nil {
			return nil, err
		}

		m := map[string]any{"id": full["id"]}
		for _, f := range fields {
			if v, ok := full[f]; ok {
				m[f] = v
			}
		}
		out = append(out, m)
	}
	return out, nil
}
