package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"

	DefaultRatingsAverage = 4.5
)

// Location is a GeoJSON point with a description. Coordinates are
// [longitude, latitude].
type Location struct {
	Type        string    `json:"type" validate:"omitempty,oneof=Point"`
	Coordinates []float64 `json:"coordinates" validate:"omitempty,len=2"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty" validate:"gte=0"`
}

// Tour is a bookable tour. Guides holds user ids; the detail view expands
// them.
type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name" validate:"required,max=100"`
	Duration        int         `json:"duration" validate:"gt=0"`
	MaxGroupSize    int         `json:"maxGroupSize" validate:"gt=0"`
	Difficulty      string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int         `json:"ratingsQuantity" validate:"gte=0"`
	Price           float64     `json:"price" validate:"gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty" validate:"omitempty,gte=0"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover" validate:"required"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations" validate:"dive"`
	Guides          []string    `json:"guides" validate:"dive,required"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Normalize trims text fields and fills defaults. It is applied before
// validation on create.
func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Difficulty = strings.ToLower(strings.TrimSpace(t.Difficulty))
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []Location{}
	}
	if t.Guides == nil {
		t.Guides = []string{}
	}
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
}

// Validate checks struct tags and the cross-field price rule.
func (t *Tour) Validate() error {
	if err := Validate(t); err != nil {
		return err
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return fmt.Errorf("%w: discount price (%v) should be below regular price", common.ErrorValidation, *t.PriceDiscount)
	}
	return nil
}

// Clone returns a deep copy.
func (t *Tour) Clone() *Tour {
	c := *t
	if t.PriceDiscount != nil {
		d := *t.PriceDiscount
		c.PriceDiscount = &d
	}
	if t.StartLocation != nil {
		l := cloneLocation(*t.StartLocation)
		c.StartLocation = &l
	}
	c.Images = append([]string(nil), t.Images...)
	c.StartDates = append([]time.Time(nil), t.StartDates...)
	c.Guides = append([]string(nil), t.Guides...)
	c.Locations = make([]Location, len(t.Locations))
	for i, l := range t.Locations {
		c.Locations[i] = cloneLocation(l)
	}
	return &c
}

func cloneLocation(l Location) Location {
	l.Coordinates = append([]float64(nil), l.Coordinates...)
	return l
}

// TourUpdate is a partial update; nil fields are left unchanged.
type TourUpdate struct {
	Name            *string      `json:"name"`
	Duration        *int         `json:"duration"`
	MaxGroupSize    *int         `json:"maxGroupSize"`
	Difficulty      *string      `json:"difficulty"`
	RatingsAverage  *float64     `json:"ratingsAverage"`
	RatingsQuantity *int         `json:"ratingsQuantity"`
	Price           *float64     `json:"price"`
	PriceDiscount   *float64     `json:"priceDiscount"`
	Summary         *string      `json:"summary"`
	Description     *string      `json:"description"`
	ImageCover      *string      `json:"imageCover"`
	Images          *[]string    `json:"images"`
	StartDates      *[]time.Time `json:"startDates"`
	StartLocation   *Location    `json:"startLocation"`
	Locations       *[]Location  `json:"locations"`
	Guides          *[]string    `json:"guides"`
}

// Apply copies the set fields onto t and normalizes them.
func (u TourUpdate) Apply(t *Tour) {
	if u.Name != nil {
		t.Name = strings.TrimSpace(*u.Name)
	}
	if u.Duration != nil {
		t.Duration = *u.Duration
	}
	if u.MaxGroupSize != nil {
		t.MaxGroupSize = *u.MaxGroupSize
	}
	if u.Difficulty != nil {
		t.Difficulty = strings.ToLower(strings.TrimSpace(*u.Difficulty))
	}
	if u.RatingsAverage != nil {
		t.RatingsAverage = *u.RatingsAverage
	}
	if u.RatingsQuantity != nil {
		t.RatingsQuantity = *u.RatingsQuantity
	}
	if u.Price != nil {
		t.Price = *u.Price
	}
	if u.PriceDiscount != nil {
		d := *u.PriceDiscount
		t.PriceDiscount = &d
	}
	if u.Summary != nil {
		t.Summary = strings.TrimSpace(*u.Summary)
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.ImageCover != nil {
		t.ImageCover = *u.ImageCover
	}
	if u.Images != nil {
		t.Images = append([]string{}, (*u.Images)...)
	}
	if u.StartDates != nil {
		t.StartDates = append([]time.Time{}, (*u.StartDates)...)
	}
	if u.StartLocation != nil {
		l := cloneLocation(*u.StartLocation)
		if l.Type == "" {
			l.Type = "Point"
		}
		t.StartLocation = &l
	}
	if u.Locations != nil {
		t.Locations = make([]Location, len(*u.Locations))
		for i, l := range *u.Locations {
			t.Locations[i] = cloneLocation(l)
			if t.Locations[i].Type == "" {
				t.Locations[i].Type = "Point"
			}
		}
	}
	if u.Guides != nil {
		t.Guides = append([]string{}, (*u.Guides)...)
	}
}

// Normalize trims and lowercases the set fields the same way Tour.Normalize
// does, so storage receives the values that were validated.
func (u *TourUpdate) Normalize() {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	u.Name = trim(u.Name)
	u.Summary = trim(u.Summary)
	u.Description = trim(u.Description)
	if u.Difficulty != nil {
		v := strings.ToLower(strings.TrimSpace(*u.Difficulty))
		u.Difficulty = &v
	}
	if u.StartLocation != nil {
		l := cloneLocation(*u.StartLocation)
		if l.Type == "" {
			l.Type = "Point"
		}
		u.StartLocation = &l
	}
	if u.Locations != nil {
		ls := make([]Location, len(*u.Locations))
		for i, l := range *u.Locations {
			ls[i] = cloneLocation(l)
			if ls[i].Type == "" {
				ls[i].Type = "Point"
			}
		}
		u.Locations = &ls
	}
}

// Empty reports whether the update changes nothing.
func (u TourUpdate) Empty() bool {
	return u == TourUpdate{}
}

// TourDetails is a tour with guides and reviews expanded.
type TourDetails struct {
	*Tour
	Guides  []UserSummary    `json:"guides"`
	Reviews []*ReviewDetails `json:"reviews"`
}
