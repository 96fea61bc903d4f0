package models

import (
	"strings"
	"time"
)

// Review is a rating left by a user on a tour. TourID and UserID are
// references and are not checked for integrity by storage.
type Review struct {
	ID        string    `json:"id"`
	Review    string    `json:"review" validate:"required,max=2000"`
	Rating    int       `json:"rating" validate:"required,gte=1,lte=5"`
	TourID    string    `json:"tour" validate:"required"`
	UserID    string    `json:"user" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

// Normalize trims the review text.
func (r *Review) Normalize() {
	r.Review = strings.TrimSpace(r.Review)
	r.TourID = strings.TrimSpace(r.TourID)
	r.UserID = strings.TrimSpace(r.UserID)
}

// Ref is an expanded reference: an id with the display name. Name is empty
// when the referenced record no longer exists.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ReviewDetails is a review with its author and tour resolved to names.
type ReviewDetails struct {
	ID        string    `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	Tour      Ref       `json:"tour"`
	User      Ref       `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewInput is the accepted create payload. Tour may also come from the
// query string; User defaults to the authenticated caller.
type ReviewInput struct {
	Review string `json:"review"`
	Rating int    `json:"rating"`
	Tour   string `json:"tour"`
	User   string `json:"user"`
}
