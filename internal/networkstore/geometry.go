// Package networkstore is the Postgres-backed persisted representation of
// a coverage area: boundary, segmented street table with stable
// segment_id, per-segment mutable state, and derived aggregates (spec
// §4.2). A per-area spatial index is rebuilt in memory on SaveSegments
// and reused for attribution/viewport queries without round-tripping
// through PostGIS for every candidate lookup.
package networkstore

import (
	"database/sql/driver"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GormGeometry adapts an orb.Geometry to a GORM/database/sql column,
// round-tripping through GeoJSON text so the stored column stays
// inspectable with any JSON-aware tooling.
type GormGeometry struct {
	Geometry orb.Geometry
}

// Value implements driver.Valuer.
func (g GormGeometry) Value() (driver.Value, error) {
	if g.Geometry == nil {
		return nil, nil
	}

	data, err := geojson.NewGeometry(g.Geometry).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal geometry: %w", err)
	}

	return string(data), nil
}

// Scan implements sql.Scanner.
func (g *GormGeometry) Scan(value any) error {
	if value == nil {
		g.Geometry = nil

		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("geometry scan: unsupported type %T", value)
	}

	parsed, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return fmt.Errorf("unmarshal geometry: %w", err)
	}

	g.Geometry = parsed.Geometry()

	return nil
}

// GormTime-free helper kept geometry-specific: segments are always
// LineStrings, areas are Polygon/MultiPolygon. asLineString centralizes
// the segment type assertion the model layer needs repeatedly.
func asLineString(g orb.Geometry) orb.LineString {
	ls, _ := g.(orb.LineString)

	return ls
}
