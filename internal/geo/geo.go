// Package geo holds the unit conversions behind the radius and distance
// searches.  The heavy lifting is done by MySQL's ST_Distance_Sphere; this
// package only parses input and converts between linear and angular units.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

const (
	EarthRadiusKm = 6378.1
	EarthRadiusMi = 3963.2

	// Multipliers turning metres into the requested unit.
	MetersToKm = 0.001
	MetersToMi = 0.000621371

	// EarthRadiusMeters is the sphere radius handed to ST_Distance_Sphere so
	// that distances line up with the angular radius above.
	EarthRadiusMeters = EarthRadiusKm * 1000
)

type Unit string

const (
	Kilometers Unit = "km"
	Miles      Unit = "mi"
)

// ParseUnit returns Miles for "mi" and Kilometers for anything else.
func ParseUnit(s string) Unit {
	if strings.EqualFold(strings.TrimSpace(s), string(Miles)) {
		return Miles
	}
	return Kilometers
}

// AngularRadius converts a distance in u to radians on the unit sphere.
func AngularRadius(distance float64, u Unit) float64 {
	if u == Miles {
		return distance / EarthRadiusMi
	}
	return distance / EarthRadiusKm
}

// DistanceMultiplier converts metres to u.
func DistanceMultiplier(u Unit) float64 {
	if u == Miles {
		return MetersToMi
	}
	return MetersToKm
}

var ErrLatLng = apperr.BadRequest("Please provide latitude and longitude in the format lat,lng.")

// ParseLatLng parses "lat,lng".
func ParseLatLng(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, ErrLatLng
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || !(math.Abs(lat) <= 90) || !(math.Abs(lng) <= 180) {
		return 0, 0, ErrLatLng
	}
	return lat, lng, nil
}
