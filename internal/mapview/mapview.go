// Package mapview holds the state of the interactive map: the basemap layer,
// the viewport and the single marker.
package mapview

import (
	"github.com/mmynk/flatearth/internal/geo"
)

const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultZoom        = 13
)

// DefaultCenter is where the map opens before any search.
var DefaultCenter = geo.Coordinate{Lat: 51.505, Lon: -0.09}

// TileLayer describes the basemap.
type TileLayer struct {
	URL         string
	Attribution string
}

// View is the map state. The zero value is not useful; use New.
type View struct {
	Basemap TileLayer
	Center  geo.Coordinate
	Zoom    int
	Marker  geo.Coordinate
}

// New returns a view centred on center with the marker there.
func New(basemap TileLayer, center geo.Coordinate, zoom int) View {
	if basemap.URL == "" {
		basemap.URL = DefaultTileURL
		basemap.Attribution = DefaultAttribution
	}
	return View{
		Basemap: basemap,
		Center:  center,
		Zoom:    zoom,
		Marker:  center,
	}
}

// Recenter moves the viewport and the marker to c. It reports whether
// anything changed; the basemap is left untouched.
func (v *View) Recenter(c geo.Coordinate, zoom int) bool {
	if v.Center == c && v.Marker == c && v.Zoom == zoom {
		return false
	}
	v.Center = c
	v.Marker = c
	v.Zoom = zoom
	return true
}

// Config is the map state as handed to the browser widget.
type Config struct {
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	Marker      [2]float64 `json:"marker"`
	Tiles       string     `json:"tiles"`
	Attribution string     `json:"attribution"`
}

// Config returns the browser-side configuration.
func (v View) Config() Config {
	return Config{
		Center:      [2]float64{v.Center.Lat, v.Center.Lon},
		Zoom:        v.Zoom,
		Marker:      [2]float64{v.Marker.Lat, v.Marker.Lon},
		Tiles:       v.Basemap.URL,
		Attribution: v.Basemap.Attribution,
	}
}
