package geo

import "math"

// Precision is the number of decimal places two coordinates must agree on to
// refer to the same place (about 11 m of latitude).
const Precision = 4

// Located is anything pinned to a coordinate.
type Located interface {
	Position() Coordinate
}

// SameBucket reports whether a and b agree on both components after rounding
// to places. Stored coordinates are never rewritten; rounding happens here, at
// query time.
func SameBucket(a, b Coordinate, places int) bool {
	scale := math.Pow10(places)
	return math.Round(a.Lat*scale) == math.Round(b.Lat*scale) &&
		math.Round(a.Lon*scale) == math.Round(b.Lon*scale)
}

// Filter returns the records located in the same bucket as current, in their
// original order.
func Filter[T Located](records []T, current Coordinate, places int) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if SameBucket(r.Position(), current, places) {
			out = append(out, r)
		}
	}
	return out
}

// Reverse returns a reversed copy of s.
func Reverse[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
