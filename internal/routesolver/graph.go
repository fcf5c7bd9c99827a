// Package routesolver builds a Rural Postman tour over an area's undriven
// segments: required-edge subgraph, odd-node matching over full-graph
// shortest paths, deadhead augmentation, and Eulerian circuit extraction
// (spec §4.8).
package routesolver

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/core"
	"github.com/paulmach/orb"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/geomkit"
)

// weightScale converts meters to the int64 edge weight lvlath's Graph
// requires; centimeters give sub-meter precision without float drift in
// Dijkstra's accumulation.
const weightScale = 100.0

func toWeight(meters float64) int64 {
	return int64(meters*weightScale + 0.5)
}

func fromWeight(w int64) float64 {
	return float64(w) / weightScale
}

// nodeKey quantizes a coordinate to a stable junction id, merging segment
// endpoints that represent the same physical junction. 1e-6 degrees is
// ~0.11m at the equator, well under any realistic snap tolerance.
func nodeKey(p orb.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p[0], p[1])
}

// graphEdge records the source segment (or synthetic connector) behind a
// core.Graph edge, since core.Graph itself only stores endpoints+weight.
type graphEdge struct {
	segmentID string // empty for synthetic connector edges
	required  bool
	connector bool
	geometry  orb.LineString
}

// builtGraph bundles the lvlath graph with the bookkeeping RouteSolver
// needs to go from graph edges back to geometry and segment identity.
type builtGraph struct {
	g         *core.Graph
	nodePoint map[string]orb.Point
	edgeInfo  map[string]graphEdge // core.Edge.ID -> graphEdge
}

// buildGraph constructs the undirected, weighted junction graph from an
// area's current segment set: one graph edge per segment, nodes are
// quantized segment endpoints (spec's "network junctions").
func buildGraph(segments []*entity.Segment) *builtGraph {
	bg := &builtGraph{
		g:         core.NewGraph(core.WithWeighted(), core.WithMultiEdges()),
		nodePoint: map[string]orb.Point{},
		edgeInfo:  map[string]graphEdge{},
	}

	for _, seg := range segments {
		if len(seg.Geometry) < 2 {
			continue
		}

		from := seg.Geometry[0]
		to := seg.Geometry[len(seg.Geometry)-1]
		fromKey, toKey := nodeKey(from), nodeKey(to)

		bg.ensureNode(fromKey, from)
		bg.ensureNode(toKey, to)

		if fromKey == toKey {
			continue // degenerate loop segment, not a useful graph edge
		}

		weight := toWeight(seg.SegmentLengthM)
		eid, err := bg.g.AddEdge(fromKey, toKey, weight)
		if err != nil {
			continue
		}

		bg.edgeInfo[eid] = graphEdge{
			segmentID: seg.SegmentID,
			required:  !seg.Driven && !seg.Undriveable,
			geometry:  seg.Geometry,
		}
	}

	return bg
}

func (bg *builtGraph) ensureNode(key string, p orb.Point) {
	if _, ok := bg.nodePoint[key]; ok {
		return
	}
	_ = bg.g.AddVertex(key)
	bg.nodePoint[key] = p
}

// requiredNodeSet returns the node keys touched by at least one required
// edge, the vertex set V_R of the required subgraph H.
func (bg *builtGraph) requiredNodeSet() map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range bg.g.Edges() {
		if info, ok := bg.edgeInfo[e.ID]; ok && info.required {
			out[e.From] = struct{}{}
			out[e.To] = struct{}{}
		}
	}

	return out
}

// oddDegreeInRequired computes, for every node in required, its degree
// counting required edges only (H's own degree, not G's) and returns the
// ones with odd degree (spec step 2).
func (bg *builtGraph) oddDegreeInRequired(required map[string]struct{}) []string {
	degree := map[string]int{}
	for _, e := range bg.g.Edges() {
		info, ok := bg.edgeInfo[e.ID]
		if !ok || !info.required {
			continue
		}
		degree[e.From]++
		degree[e.To]++
	}

	var odd []string
	for node := range required {
		if degree[node]%2 == 1 {
			odd = append(odd, node)
		}
	}
	sort.Strings(odd) // deterministic iteration order for matching/tests

	return odd
}

// components returns the connected components of the full graph as sets of
// node keys, largest first.
func (bg *builtGraph) components() [][]string {
	visited := map[string]bool{}
	var comps [][]string

	nodes := bg.g.Vertices()
	sort.Strings(nodes)

	for _, start := range nodes {
		if visited[start] {
			continue
		}

		var comp []string
		queue := []string{start}
		visited[start] = true

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)

			neighbors, err := bg.g.NeighborIDs(cur)
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}

		comps = append(comps, comp)
	}

	sort.Slice(comps, func(i, j int) bool { return len(comps[i]) > len(comps[j]) })

	return comps
}

// bridgeComponents connects every non-primary component to the primary
// component via a synthetic connector edge to its nearest node (straight-
// line distance), so the graph is connected before shortest-path and
// matching steps run (spec: "bridge components by connecting each
// non-primary component to the primary via the shortest inter-component
// edge").
func (bg *builtGraph) bridgeComponents() error {
	comps := bg.components()
	if len(comps) <= 1 {
		return nil
	}

	primary := comps[0]

	for _, comp := range comps[1:] {
		bestDist := -1.0
		var bestA, bestB string

		for _, a := range primary {
			pa := bg.nodePoint[a]
			for _, b := range comp {
				pb := bg.nodePoint[b]
				d := geomkit.Haversine(pa, pb)
				if bestDist < 0 || d < bestDist {
					bestDist = d
					bestA, bestB = a, b
				}
			}
		}

		if bestDist < 0 {
			return ErrDisconnected
		}

		eid, err := bg.g.AddEdge(bestA, bestB, toWeight(bestDist))
		if err != nil {
			return ErrDisconnected
		}

		bg.edgeInfo[eid] = graphEdge{
			connector: true,
			geometry:  orb.LineString{bg.nodePoint[bestA], bg.nodePoint[bestB]},
		}

		primary = append(primary, comp...)
	}

	return nil
}
