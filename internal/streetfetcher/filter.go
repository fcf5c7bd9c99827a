// Package streetfetcher pulls the drivable street graph for an area's
// boundary from the OSM-origin provider and caches the result.
package streetfetcher

// Way is a raw OSM way as returned by the street provider, before
// segmentation.
type Way struct {
	WayID       string  `json:"wayId"`
	Geometry    [][2]float64 `json:"geometry"` // [lon, lat] pairs
	HighwayTag  string  `json:"highway"`
	Access      string  `json:"access"`
	Service     string  `json:"service"`
	Area        string  `json:"area"`
	MotorVehicle string `json:"motorVehicle"`
	Motorcar    string  `json:"motorcar"`
	Vehicle     string  `json:"vehicle"`
	Oneway      bool    `json:"oneway"`
	Name        string  `json:"name"`
}

var excludedHighwayTags = map[string]struct{}{
	"footway":       {},
	"path":          {},
	"steps":         {},
	"pedestrian":    {},
	"bridleway":     {},
	"cycleway":      {},
	"corridor":      {},
	"platform":      {},
	"raceway":       {},
	"proposed":      {},
	"construction":  {},
	"track":         {},
	"service":       {},
	"alley":         {},
	"driveway":      {},
	"parking_aisle": {},
}

var excludedAccess = map[string]struct{}{
	"private":     {},
	"no":          {},
	"customers":   {},
	"delivery":    {},
	"agricultural": {},
	"forestry":    {},
	"destination": {},
	"permit":      {},
}

var excludedService = map[string]struct{}{
	"parking_aisle": {},
	"driveway":      {},
}

// IsDrivable applies the authoritative drivable filter: a street passable
// by a private motor vehicle.
func IsDrivable(w Way) bool {
	if _, excluded := excludedHighwayTags[w.HighwayTag]; excluded {
		return false
	}
	if _, excluded := excludedAccess[w.Access]; excluded {
		return false
	}
	if _, excluded := excludedService[w.Service]; excluded {
		return false
	}
	if w.Area == "yes" {
		return false
	}
	if w.MotorVehicle == "no" || w.Motorcar == "no" || w.Vehicle == "no" {
		return false
	}

	return true
}

// FilterDrivable returns the subset of ways passing IsDrivable.
func FilterDrivable(ways []Way) []Way {
	out := make([]Way, 0, len(ways))
	for _, w := range ways {
		if IsDrivable(w) {
			out = append(out, w)
		}
	}

	return out
}
