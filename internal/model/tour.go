package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

const (
	DefaultRatingsAverage = 4.5

	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Tour mirrors the `tours` table.  Guides holds user ids and is populated
// with user summaries on reads; Reviews is never stored, it is filled by
// the tour service from the reviews table.
type Tour struct {
	ID              uint64              `json:"id"`
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	Duration        int                 `json:"duration"`
	MaxGroupSize    int                 `json:"maxGroupSize"`
	Difficulty      string              `json:"difficulty"`
	RatingsAverage  float64             `json:"ratingsAverage"`
	RatingsQuantity int                 `json:"ratingsQuantity"`
	Price           float64             `json:"price"`
	PriceDiscount   *float64            `json:"priceDiscount,omitempty"`
	Summary         string              `json:"summary"`
	Description     string              `json:"description,omitempty"`
	ImageCover      string              `json:"imageCover"`
	Images          JSONList[string]    `json:"images"`
	StartDates      JSONList[time.Time] `json:"startDates"`
	StartLocation   Point               `json:"startLocation"`
	Locations       JSONList[Location]  `json:"locations"`
	SecretTour      bool                `json:"secretTour,omitempty"`
	Guides          Refs                `json:"guides"`
	CreatedAt       time.Time           `json:"createdAt"`

	Reviews []Review `json:"reviews,omitempty"`
}

func (t *Tour) Identity() uint64      { return t.ID }
func (t *Tour) SetIdentity(id uint64) { t.ID = id }

func (t *Tour) Fields() []Field {
	return []Field{
		{Name: "id", Column: "id", Kind: KindNumber, Ptr: &t.ID, ReadOnly: true},
		{Name: "name", Column: "name", Kind: KindString, Ptr: &t.Name},
		{Name: "slug", Column: "slug", Kind: KindString, Ptr: &t.Slug, ReadOnly: true},
		{Name: "duration", Column: "duration", Kind: KindNumber, Ptr: &t.Duration},
		{Name: "maxGroupSize", Column: "max_group_size", Kind: KindNumber, Ptr: &t.MaxGroupSize},
		{Name: "difficulty", Column: "difficulty", Kind: KindString, Ptr: &t.Difficulty},
		{Name: "ratingsAverage", Column: "ratings_average", Kind: KindNumber, Ptr: &t.RatingsAverage, ReadOnly: true, Aggregate: true},
		{Name: "ratingsQuantity", Column: "ratings_quantity", Kind: KindNumber, Ptr: &t.RatingsQuantity, ReadOnly: true, Aggregate: true},
		{Name: "price", Column: "price", Kind: KindNumber, Ptr: &t.Price},
		{Name: "priceDiscount", Column: "price_discount", Kind: KindNumber, Ptr: &t.PriceDiscount},
		{Name: "summary", Column: "summary", Kind: KindString, Ptr: &t.Summary},
		{Name: "description", Column: "description", Kind: KindString, Ptr: &t.Description},
		{Name: "imageCover", Column: "image_cover", Kind: KindString, Ptr: &t.ImageCover},
		{Name: "images", Column: "images", Kind: KindJSON, Ptr: &t.Images},
		{Name: "startDates", Column: "start_dates", Kind: KindJSON, Ptr: &t.StartDates},
		{Name: "startLocation", Column: "start_location", Kind: KindJSON, Ptr: &t.StartLocation},
		{Name: "locations", Column: "locations", Kind: KindJSON, Ptr: &t.Locations},
		{Name: "secretTour", Column: "secret_tour", Kind: KindBool, Ptr: &t.SecretTour},
		{Name: "guides", Column: "guides", Kind: KindJSON, Ptr: &t.Guides},
		{Name: "createdAt", Column: "created_at", Kind: KindTime, Ptr: &t.CreatedAt, ReadOnly: true},
	}
}

// MarshalJSON adds the derived durationWeeks.
func (t Tour) MarshalJSON() ([]byte, error) {
	type plain Tour
	return json.Marshal(struct {
		plain
		DurationWeeks float64 `json:"durationWeeks"`
	}{plain(t), float64(t.Duration) / 7})
}

// Normalize trims text fields, derives the slug and fills defaults.  It runs
// before every write.
func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = Slugify(t.Name)
	if t.RatingsAverage == 0 && t.RatingsQuantity == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	t.RatingsAverage = RoundRating(t.RatingsAverage)
	if t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.StartDates {
		t.StartDates[i] = t.StartDates[i].UTC()
	}
}

func (t *Tour) Validate() error {
	v := &apperr.ValidationError{}
	switch n := len([]rune(t.Name)); {
	case n == 0:
		v.Add("name", "A tour must have a name")
	case n > 40:
		v.Add("name", "A tour name must have less or equal than 40 characters")
	case n < 10:
		v.Add("name", "A tour name must have more or equal than 10 characters")
	}
	if t.Duration <= 0 {
		v.Add("duration", "A tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		v.Add("maxGroupSize", "A tour must have a group size")
	}
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	case "":
		v.Add("difficulty", "A tour must have a difficulty")
	default:
		v.Add("difficulty", "Difficulty is either: easy, medium, difficult")
	}
	if t.RatingsAverage < 1 {
		v.Add("ratingsAverage", "Rating must be above 1.0")
	}
	if t.RatingsAverage > 5 {
		v.Add("ratingsAverage", "Rating must be below 5.0")
	}
	if t.Price <= 0 {
		v.Add("price", "A tour must have a price")
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		v.Add("priceDiscount", "Discount price should be below regular price")
	}
	if t.Summary == "" {
		v.Add("summary", "A tour must have a summary")
	}
	if t.ImageCover == "" {
		v.Add("imageCover", "A tour must have a cover image")
	}
	if t.StartLocation.Type != "Point" {
		v.Add("startLocation", "Start location type must be Point")
	}
	if c := t.StartLocation.Coordinates; len(c) != 0 && (len(c) != 2 || !validLngLat(c[0], c[1])) {
		v.Add("startLocation", "Start location coordinates must be [longitude, latitude]")
	}
	return v.Err()
}

// RoundRating rounds to one decimal place, e.g. 4.666 -> 4.7.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func validLngLat(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// TourStats is one difficulty bucket of the statistics aggregation.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan lists the tours starting in one month of a year.
type MonthlyPlan struct {
	Month    int      `json:"month"`
	NumTours int      `json:"numTours"`
	Tours    []string `json:"tours"`
}

// TourDistance is the distance from a point to a tour's start location.
type TourDistance struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
