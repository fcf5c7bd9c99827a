package geomkit

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
)

// UTM projection constants (WGS84 ellipsoid), Snyder's transverse Mercator
// series. No library in the retrieval pack exposes a per-zone UTM
// projection, so this is implemented directly against the published
// formulas rather than pulled in from a dependency.
const (
	utmA       = 6378137.0         // semi-major axis
	utmF       = 1 / 298.257223563 // flattening
	utmK0      = 0.9996
	utmE0      = 500000.0
	utmN0South = 10000000.0
)

// UTMZoneFor derives the UTM zone number and hemisphere (true = northern)
// for a WGS84 coordinate.
func UTMZoneFor(lat, lon float64) (zone int, northern bool) {
	zone = int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}

	return zone, lat >= 0
}

// Transformer projects WGS84 coordinates to and from a fixed UTM zone.
type Transformer struct {
	zone      int
	northern  bool
	centralLon float64
}

var (
	transformerCache   = map[[2]int]*Transformer{}
	transformerCacheMu sync.Mutex
)

// TransformerFor returns the cached transformer for the UTM zone covering
// (lat, lon), creating it on first use.
func TransformerFor(lat, lon float64) *Transformer {
	zone, northern := UTMZoneFor(lat, lon)
	key := [2]int{zone, boolKey(northern)}

	transformerCacheMu.Lock()
	defer transformerCacheMu.Unlock()

	if tr, ok := transformerCache[key]; ok {
		return tr
	}

	tr := &Transformer{
		zone:       zone,
		northern:   northern,
		centralLon: float64(zone)*6 - 183,
	}
	transformerCache[key] = tr

	return tr
}

func boolKey(b bool) int {
	if b {
		return 1
	}

	return 0
}

// Project converts a WGS84 point to UTM easting/northing meters, in this
// transformer's zone.
func (t *Transformer) Project(p orb.Point) (easting, northing float64) {
	lon, lat := p[0], p[1]
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	centralRad := t.centralLon * math.Pi / 180

	e2 := utmF * (2 - utmF)
	ePrime2 := e2 / (1 - e2)

	n := utmA / math.Sqrt(1-e2*math.Sin(latRad)*math.Sin(latRad))
	tVal := math.Tan(latRad) * math.Tan(latRad)
	c := ePrime2 * math.Cos(latRad) * math.Cos(latRad)
	a := (lonRad - centralRad) * math.Cos(latRad)

	m := utmA * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*latRad -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*latRad) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*latRad) -
		(35*e2*e2*e2/3072)*math.Sin(6*latRad))

	easting = utmK0*n*(a+(1-tVal+c)*math.Pow(a, 3)/6+
		(5-18*tVal+tVal*tVal+72*c-58*ePrime2)*math.Pow(a, 5)/120) + utmE0

	northing = utmK0 * (m + n*math.Tan(latRad)*(a*a/2+
		(5-tVal+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*tVal+tVal*tVal+600*c-330*ePrime2)*math.Pow(a, 6)/720))

	if !t.northern {
		northing += utmN0South
	}

	return easting, northing
}

// Unproject converts UTM easting/northing meters back to a WGS84 point in
// this transformer's zone.
func (t *Transformer) Unproject(easting, northing float64) orb.Point {
	if !t.northern {
		northing -= utmN0South
	}

	e2 := utmF * (2 - utmF)
	ePrime2 := e2 / (1 - e2)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	m := northing / utmK0
	mu := m / (utmA * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu + (3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu)

	n1 := utmA / math.Sqrt(1-e2*math.Sin(phi1)*math.Sin(phi1))
	t1 := math.Tan(phi1) * math.Tan(phi1)
	c1 := ePrime2 * math.Cos(phi1) * math.Cos(phi1)
	r1 := utmA * (1 - e2) / math.Pow(1-e2*math.Sin(phi1)*math.Sin(phi1), 1.5)
	d := (easting - utmE0) / (n1 * utmK0)

	lat := phi1 - (n1*math.Tan(phi1)/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ePrime2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*ePrime2-3*c1*c1)*d*d*d*d*d*d/720)

	lon := t.centralLon*math.Pi/180 + (d-
		(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*ePrime2+24*t1*t1)*d*d*d*d*d/120)/math.Cos(phi1)

	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}
