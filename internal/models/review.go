package models

import "github.com/mmynk/flatearth/internal/geo"

// Review is a text review, with an optional photo, pinned to a coordinate.
// Reviews are immutable once written.
type Review struct {
	// ID is assigned by the store on creation (UUID format).
	ID string `json:"id"`

	Title string `json:"title"`
	Body  string `json:"body"`

	// ImageURL is empty unless a photo was uploaded with the review.
	ImageURL string `json:"image_url,omitempty"`

	// Location is stored at full precision and never re-rounded.
	Location geo.Coordinate `json:"location"`

	// AuthorID references the identity that submitted the review.
	AuthorID    string `json:"author_id"`
	AuthorEmail string `json:"author_email"`

	// CreatedAt is a Unix timestamp in milliseconds, assigned by the store and
	// non-decreasing in write order.
	CreatedAt int64 `json:"created_at"`
}

// Position implements geo.Located.
func (r Review) Position() geo.Coordinate {
	return r.Location
}
