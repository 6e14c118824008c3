// Package models defines the records persisted by Flat Earth.
//
//   - Review: a titled text review, optionally with a photo, pinned to a coordinate
//   - User: an account of the built-in identity provider
//
// Relationships are expressed with ID strings rather than pointers: a review
// references its author by AuthorID and carries the author's email so the list
// can be rendered without a join.
package models
