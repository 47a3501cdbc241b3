// Package geometry normalizes between the textual well-known-text point form
// stored by the spatial extension and the GeoJSON point shape surfaced to
// clients.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// SRID is the spatial reference identifier used for all stored points (WGS84).
const SRID = 4326

// Point is the canonical coordinate representation: a GeoJSON Point with
// coordinates ordered longitude, latitude.
type Point struct {
	orb.Point
}

// NewPoint constructs a Point from a longitude/latitude pair.
func NewPoint(lng, lat float64) Point {
	return Point{orb.Point{lng, lat}}
}

// Longitude returns the first coordinate.
func (p Point) Longitude() float64 { return p.Point.Lon() }

// Latitude returns the second coordinate.
func (p Point) Latitude() float64 { return p.Point.Lat() }

// MarshalJSON renders the GeoJSON form {"type":"Point","coordinates":[lng,lat]}.
func (p Point) MarshalJSON() ([]byte, error) {
	return geojson.NewGeometry(p.Point).MarshalJSON()
}

// UnmarshalJSON accepts the GeoJSON form. Anything that is not a Point
// geometry is an error.
func (p *Point) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return err
	}
	pt, ok := g.Geometry().(orb.Point)
	if !ok {
		return fmt.Errorf("geometry is %q, expected Point", g.Type)
	}
	p.Point = pt
	return nil
}

// ParsePoint converts a raw coordinates value into a Point. It accepts the
// textual form ("POINT(lng lat)", with or without an "SRID=n;" prefix) or an
// already-structured GeoJSON-style value. It returns nil for anything it does
// not recognize: absent input, malformed text, wrong geometry type, or a
// coordinate array that is not two numbers. It never returns an error.
func ParsePoint(raw any) *Point {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	case Point:
		pt := v
		return &pt
	case *Point:
		if v == nil {
			return nil
		}
		pt := *v
		return &pt
	case orb.Point:
		return &Point{v}
	case *geojson.Geometry:
		if v == nil {
			return nil
		}
		if pt, ok := v.Geometry().(orb.Point); ok {
			return &Point{pt}
		}
		return nil
	case map[string]any:
		return parseObject(v)
	default:
		return nil
	}
}

// parseText parses the stored textual form. The SRID prefix written by
// BuildPoint is optional on read.
func parseText(s string) *Point {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i := strings.IndexByte(s, ';'); i >= 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = s[i+1:]
	}
	pt, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return nil
	}
	return &Point{pt}
}

// parseObject parses a decoded GeoJSON-style map, e.g. from a JSON body or a
// join result that arrived already structured.
func parseObject(m map[string]any) *Point {
	if t, ok := m["type"].(string); ok && t != "Point" {
		return nil
	}
	coords, ok := m["coordinates"].([]any)
	if !ok || len(coords) != 2 {
		return nil
	}
	lng, okLng := toFloat(coords[0])
	lat, okLat := toFloat(coords[1])
	if !okLng || !okLat {
		return nil
	}
	return &Point{orb.Point{lng, lat}}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// BuildPoint renders the textual point expression persisted by the store.
// It returns "" unless both inputs are present and finite. Longitude is
// listed before latitude; callers must not transpose.
func BuildPoint(latitude, longitude *float64) string {
	if latitude == nil || longitude == nil {
		return ""
	}
	if math.IsNaN(*latitude) || math.IsInf(*latitude, 0) ||
		math.IsNaN(*longitude) || math.IsInf(*longitude, 0) {
		return ""
	}
	return fmt.Sprintf("SRID=%d;POINT(%.6f %.6f)", SRID, *longitude, *latitude)
}

// Valid reports whether a latitude/longitude pair is inside the WGS84 range.
func Valid(latitude, longitude float64) bool {
	return latitude >= -90 && latitude <= 90 && longitude >= -180 && longitude <= 180
}

// Round4 rounds a coordinate to four decimal places, the precision reported
// by the map picker on drag-end.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
