// Package geo holds the coordinate type and the location index that groups
// reviews by rounded position.
package geo

import (
	"fmt"
	"math"

	apperrors "github.com/mmynk/flatearth/internal/errors"
)

// Coordinate is a WGS 84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Validate rejects latitudes outside [-90, 90] and longitudes outside [-180, 180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return apperrors.Validation(fmt.Sprintf("latitude %v out of range", c.Lat), nil)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return apperrors.Validation(fmt.Sprintf("longitude %v out of range", c.Lon), nil)
	}
	return nil
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Rounded returns c with both components rounded to places.
func (c Coordinate) Rounded(places int) Coordinate {
	return Coordinate{Lat: Round(c.Lat, places), Lon: Round(c.Lon, places)}
}
