package models

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/geojson"
)

// SRID used for every stored geometry.
const SRID = 4326

// GeoPoint is a WGS84 point stored in a PostGIS geometry column. It is read
// from and written to the database as hex encoded EWKB and rendered as a
// GeoJSON geometry in API responses.
type GeoPoint struct {
	orb.Point
	Valid bool
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Point: orb.Point{lng, lat}, Valid: true}
}

func (p GeoPoint) Lng() float64 { return p.Point.Lon() }
func (p GeoPoint) Lat() float64 { return p.Point.Lat() }

// Validate checks the coordinates fall inside the WGS84 range.
func (p GeoPoint) Validate() error {
	if !p.Valid {
		return fmt.Errorf("location is required")
	}
	if p.Lng() < -180 || p.Lng() > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lng())
	}
	if p.Lat() < -90 || p.Lat() > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat())
	}
	return nil
}

// Scan implements sql.Scanner.
func (p *GeoPoint) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = GeoPoint{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("geopoint: unsupported source %T", src)
	}

	// pgdriver hands geometry columns over in their text form (hex EWKB)
	if len(raw) > 0 && raw[0] != 0x00 && raw[0] != 0x01 {
		decoded := make([]byte, hex.DecodedLen(len(raw)))
		n, err := hex.Decode(decoded, raw)
		if err != nil {
			return fmt.Errorf("geopoint: decode hex: %w", err)
		}
		raw = decoded[:n]
	}

	geom, _, err := ewkb.Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("geopoint: %w", err)
	}
	pt, ok := geom.(orb.Point)
	if !ok {
		return fmt.Errorf("geopoint: expected point, got %s", geom.GeoJSONType())
	}
	*p = GeoPoint{Point: pt, Valid: true}
	return nil
}

// Value implements driver.Valuer.
func (p GeoPoint) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	b, err := ewkb.Marshal(p.Point, SRID)
	if err != nil {
		return nil, err
	}
	return hex.EncodeToString(b), nil
}

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return geojson.NewGeometry(p.Point).MarshalJSON()
}

// UnmarshalJSON accepts either a GeoJSON point or {"lng":..,"lat":..}.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = GeoPoint{}
		return nil
	}

	var shape struct {
		Type string   `json:"type"`
		Lng  *float64 `json:"lng"`
		Lat  *float64 `json:"lat"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	if shape.Type == "" {
		if shape.Lng == nil || shape.Lat == nil {
			return fmt.Errorf("location needs lng and lat")
		}
		*p = NewGeoPoint(*shape.Lng, *shape.Lat)
		return nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return err
	}
	pt, ok := g.Geometry().(orb.Point)
	if !ok {
		return fmt.Errorf("location must be a Point, got %s", shape.Type)
	}
	*p = GeoPoint{Point: pt, Valid: true}
	return nil
}
