package model

import (
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

// Review mirrors the `reviews` table.  A user reviews a tour at most once.
type Review struct {
	ID        uint64    `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	Tour      Ref       `json:"tour"`
	User      Ref       `json:"user"`
}

func (r *Review) Identity() uint64      { return r.ID }
func (r *Review) SetIdentity(id uint64) { r.ID = id }

func (r *Review) Fields() []Field {
	return []Field{
		{Name: "id", Column: "id", Kind: KindNumber, Ptr: &r.ID, ReadOnly: true},
		{Name: "review", Column: "review", Kind: KindString, Ptr: &r.Review},
		{Name: "rating", Column: "rating", Kind: KindNumber, Ptr: &r.Rating},
		{Name: "createdAt", Column: "created_at", Kind: KindTime, Ptr: &r.CreatedAt, ReadOnly: true},
		{Name: "tour", Column: "tour_id", Kind: KindNumber, Ptr: &r.Tour, Immutable: true},
		{Name: "user", Column: "user_id", Kind: KindNumber, Ptr: &r.User, Immutable: true},
	}
}

func (r *Review) Validate() error {
	r.Review = strings.TrimSpace(r.Review)
	v := &apperr.ValidationError{}
	if r.Review == "" {
		v.Add("review", "Review can not be empty!")
	}
	if r.Rating < 1 || r.Rating > 5 {
		v.Add("rating", "Rating must be between 1 and 5")
	}
	if r.Tour.ID == 0 {
		v.Add("tour", "Review must belong to a tour.")
	}
	if r.User.ID == 0 {
		v.Add("user", "Review must belong to a user")
	}
	return v.Err()
}

// RatingSummary is the aggregate written back onto a tour after its reviews
// change.
type RatingSummary struct {
	Quantity int
	Average  float64
}
