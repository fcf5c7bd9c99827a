package geomkit

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// IndexedGeometry is anything a SpatialIndex can store: an id plus the
// point(s) used to bound it. NetworkStore indexes segments by their
// representative point (the middle vertex) and filters true intersection with the
// buffered query geometry itself.
type IndexedGeometry struct {
	ID    string
	Point orb.Point
}

// pointer adapts IndexedGeometry to orb.Pointer.
type pointer struct {
	IndexedGeometry
}

func (p pointer) Point() orb.Point { return p.IndexedGeometry.Point }

// SpatialIndex answers nearest/bounded queries over a fixed set of
// geometries, standing in for the spec's "strtree" over a quadtree (orb
// does not ship an R-tree; quadtree is the library's nearest equivalent
// and is sufficient for point/bbox candidate queries).
type SpatialIndex struct {
	tree *quadtree.Quadtree
	ids  map[orb.Point][]string
}

// NewSpatialIndex builds an index over bound, ready for Add calls.
func NewSpatialIndex(bound orb.Bound) *SpatialIndex {
	return &SpatialIndex{
		tree: quadtree.New(bound),
		ids:  make(map[orb.Point][]string),
	}
}

// Add inserts id at representative point p.
func (s *SpatialIndex) Add(id string, p orb.Point) {
	_ = s.tree.Add(pointer{IndexedGeometry{ID: id, Point: p}})
	s.ids[p] = append(s.ids[p], id)
}

// Query returns the ids of every representative point falling inside
// bound, the candidate-generation step CoverageAttributor narrows with an
// exact buffered-intersection test.
func (s *SpatialIndex) Query(bound orb.Bound) []string {
	var out []string
	matches := s.tree.InBound(nil, bound)
	for _, m := range matches {
		ig := m.(pointer).IndexedGeometry
		out = append(out, ig.ID)
	}

	return out
}

// Nearest returns the id of the representative point closest to p.
func (s *SpatialIndex) Nearest(p orb.Point) (string, bool) {
	m := s.tree.Find(p)
	if m == nil {
		return "", false
	}

	return m.(pointer).IndexedGeometry.ID, true
}

// Size reports the number of points inserted.
func (s *SpatialIndex) Size() int {
	return s.tree.Size()
}
