package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/tour-booking/internal/geo"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
)

// TourRepo adds the aggregate and geo queries to the generic store.
type TourRepo struct {
	*Store[model.Tour, *model.Tour]
}

func NewTourRepo(db *sql.DB) *TourRepo {
	return &TourRepo{Store: NewStore[model.Tour](db, "tours", "tour")}
}

const statsSQL = `SELECT UPPER(difficulty) AS difficulty,
	COUNT(*) AS num_tours,
	COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
	AVG(ratings_average) AS avg_rating,
	AVG(price) AS avg_price,
	MIN(price) AS min_price,
	MAX(price) AS max_price
FROM tours
WHERE ratings_average >= 4.5
GROUP BY UPPER(difficulty)
ORDER BY avg_price ASC`

// Stats groups well rated tours by difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]model.TourStats, error) {
	defer observability.TrackQuery("stats", "tours")()
	rows, err := r.DB.QueryContext(ctx, statsSQL)
	if err != nil {
		return nil, fmt.Errorf("tours stats: %w", err)
	}
	defer rows.Close()

	out := []model.TourStats{}
	for rows.Next() {
		var s model.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, fmt.Errorf("tours stats scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// start_dates holds RFC 3339 strings; the first 19 characters are the UTC
// wall clock.
const monthlyPlanSQL = `SELECT MONTH(sd.start_at) AS month,
	COUNT(*) AS num_tours,
	JSON_ARRAYAGG(t.name) AS tours
FROM tours t,
	JSON_TABLE(t.start_dates, '$[*]' COLUMNS (start_date VARCHAR(40) PATH '$')) AS raw,
	LATERAL (SELECT STR_TO_DATE(LEFT(raw.start_date, 19), '%Y-%m-%dT%H:%i:%s') AS start_at) AS sd
WHERE sd.start_at >= ? AND sd.start_at < ?
GROUP BY MONTH(sd.start_at)
ORDER BY num_tours DESC, month ASC`

// MonthlyPlan counts tour starts per month of year.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	defer observability.TrackQuery("monthly_plan", "tours")()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	rows, err := r.DB.QueryContext(ctx, monthlyPlanSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("tours monthly plan: %w", err)
	}
	defer rows.Close()

	out := []model.MonthlyPlan{}
	for rows.Next() {
		var (
			p     model.MonthlyPlan
			names []byte
		)
		if err := rows.Scan(&p.Month, &p.NumTours, &names); err != nil {
			return nil, fmt.Errorf("tours monthly plan scan: %w", err)
		}
		if err := json.Unmarshal(names, &p.Tours); err != nil {
			return nil, fmt.Errorf("tours monthly plan names: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WithinCondition is the WHERE fragment selecting tours whose start lies
// inside a spherical cap.  ST_Distance_Sphere on a unit sphere returns the
// central angle, compared against the angular radius in radians.
const WithinCondition = "ST_Distance_Sphere(POINT(start_lng, start_lat), POINT(?, ?), 1) <= ?"

const distancesSQL = `SELECT id, name,
	ROUND(ST_Distance_Sphere(POINT(start_lng, start_lat), POINT(?, ?), ?) * ?, 2) AS distance
FROM tours
ORDER BY distance ASC`

// Distances returns every tour with its distance from (lat, lng) in u,
// nearest first.
func (r *TourRepo) Distances(ctx context.Context, lat, lng float64, u geo.Unit) ([]model.TourDistance, error) {
	defer observability.TrackQuery("distances", "tours")()
	rows, err := r.DB.QueryContext(ctx, distancesSQL, lng, lat, geo.EarthRadiusMeters, geo.DistanceMultiplier(u))
	if err != nil {
		return nil, fmt.Errorf("tours distances: %w", err)
	}
	defer rows.Close()

	out := []model.TourDistance{}
	for rows.Next() {
		var d model.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, fmt.Errorf("tours distances scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetRatings stores a recomputed rating summary.
func (r *TourRepo) SetRatings(ctx context.Context, id uint64, s model.RatingSummary) error {
	return r.UpdateColumns(ctx, id,
		[]string{"ratings_quantity", "ratings_average"},
		s.Quantity, model.RoundRating(s.Average))
}
