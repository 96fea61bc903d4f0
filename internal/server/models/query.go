package models

import "math"

// FilterOp is a comparison operator in a tour listing filter.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
)

// FieldKind tells how a filter value is parsed and compared.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindTime
)

// TourFields lists the tour fields that can be filtered and sorted on, by
// their JSON names.
var TourFields = map[string]FieldKind{
	"name":            KindString,
	"difficulty":      KindString,
	"duration":        KindNumber,
	"maxGroupSize":    KindNumber,
	"ratingsAverage":  KindNumber,
	"ratingsQuantity": KindNumber,
	"price":           KindNumber,
	"priceDiscount":   KindNumber,
	"createdAt":       KindTime,
}

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxPage      = 1_000_000
	MaxLimit     = 1000
)

// Filter is one field comparison. Value is a string, float64 or time.Time
// depending on the field kind.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// SortField orders by Field, descending when Desc is set.
type SortField struct {
	Field string
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = []SortField{{Field: "createdAt", Desc: true}}

// TourQuery is a parsed tour listing request. Fields only affects the
// response projection and is not seen by storage.
type TourQuery struct {
	Filters       []Filter
	Sort          []SortField
	Page          int
	Limit         int
	PageRequested bool
	Fields        []string
}

// NewTourQuery returns the query for a bare listing.
func NewTourQuery() TourQuery {
	return TourQuery{Sort: DefaultSort, Page: DefaultPage, Limit: DefaultLimit}
}

// Skip is the number of records before the requested page. It saturates
// at math.MaxInt instead of overflowing.
func (q TourQuery) Skip() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}
