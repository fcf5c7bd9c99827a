package routesolver

import (
	"encoding/xml"

	"streetcoverage/internal/domain/entity"
)

// gpxTrackPoint is one <trkpt lat lon> element.
type gpxTrackPoint struct {
	XMLName xml.Name `xml:"trkpt"`
	Lat     float64  `xml:"lat,attr"`
	Lon     float64  `xml:"lon,attr"`
}

type gpxTrackSegment struct {
	XMLName xml.Name        `xml:"trkseg"`
	Points  []gpxTrackPoint `xml:"trkpt"`
}

type gpxTrack struct {
	XMLName  xml.Name          `xml:"trk"`
	Name     string            `xml:"name,omitempty"`
	Segments []gpxTrackSegment `xml:"trkseg"`
}

type gpxDocument struct {
	XMLName xml.Name   `xml:"gpx"`
	Version string     `xml:"version,attr"`
	Creator string     `xml:"creator,attr"`
	XMLNS   string     `xml:"xmlns,attr"`
	Track   gpxTrack   `xml:"trk"`
}

// ExportGPX renders an OptimalRoute's tour as a GPX 1.1 track, one
// <trkseg> containing one <trkpt lat lon> per coordinate (spec §6 wire
// format).
func ExportGPX(route *entity.OptimalRoute, trackName string) ([]byte, error) {
	points := make([]gpxTrackPoint, 0, len(route.Coordinates))
	for _, c := range route.Coordinates {
		points = append(points, gpxTrackPoint{Lat: c[1], Lon: c[0]})
	}

	doc := gpxDocument{
		Version: "1.1",
		Creator: "streetcoverage",
		XMLNS:   "http://www.topografix.com/GPX/1/1",
		Track: gpxTrack{
			Name:     trackName,
			Segments: []gpxTrackSegment{{Points: points}},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}
