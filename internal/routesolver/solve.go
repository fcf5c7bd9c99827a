package routesolver

import (
	"log/slog"
	"sort"

	"github.com/paulmach/orb"

	"streetcoverage/internal/domain/entity"
	"streetcoverage/internal/geomkit"
)

// circuitEdge is one edge of the Eulerian multigraph M = H + matched
// deadhead paths (spec §4.8 step 5), carrying enough to stitch an ordered
// coordinate sequence back out of the traversal.
type circuitEdge struct {
	from, to string
	weightM  float64
	required bool
	geometry orb.LineString
	forward  bool // true if geometry runs from -> to
}

// Solve computes the Rural Postman completion tour over segments' required
// (undriven, driveable) subset, following spec §4.8 steps 1-7. start, when
// non-nil, biases the chosen start node to the nearest graph junction.
func Solve(segments []*entity.Segment, start *orb.Point, logger *slog.Logger) (*entity.OptimalRoute, error) {
	if !hasUndriven(segments) {
		return nil, ErrNoUndrivenSegments
	}

	bg := buildGraph(segments)

	if err := bg.bridgeComponents(); err != nil {
		return nil, err
	}

	required := bg.requiredNodeSet()
	odd := bg.oddDegreeInRequired(required)

	deadheadHops, deadheadLen, err := matchOddNodes(bg, odd)
	if err != nil {
		return nil, err
	}

	edges, requiredLen := collectRequiredEdges(bg)
	edges = append(edges, collectDeadheadEdges(bg, deadheadHops)...)

	if len(edges) == 0 {
		return nil, ErrNoUndrivenSegments
	}

	startNode := chooseStartNode(bg, edges, start)

	circuit, err := eulerianCircuit(edges, startNode)
	if err != nil {
		return nil, err
	}

	coords := stitchCoordinates(circuit, edges)

	total := requiredLen + deadheadLen
	deadheadPct := 0.0
	if total > 0 {
		deadheadPct = 100 * deadheadLen / total
	}

	if logger != nil {
		logger.Info("routesolver: odd-node matching used greedy nearest-first fallback, not exact blossom matching")
	}

	startPoint := bg.nodePoint[startNode]

	return &entity.OptimalRoute{
		Coordinates:       orb.LineString(coords),
		TotalDistanceM:    total,
		RequiredDistanceM: requiredLen,
		DeadheadDistanceM: deadheadLen,
		DeadheadPct:       deadheadPct,
		SegmentCount:      countRequired(edges),
		StartPoint:        startPoint,
	}, nil
}

func hasUndriven(segments []*entity.Segment) bool {
	for _, s := range segments {
		if !s.Driven && !s.Undriveable {
			return true
		}
	}

	return false
}

func collectRequiredEdges(bg *builtGraph) ([]circuitEdge, float64) {
	var edges []circuitEdge
	var total float64

	for _, e := range bg.g.Edges() {
		info, ok := bg.edgeInfo[e.ID]
		if !ok || !info.required {
			continue
		}

		length := fromWeight(e.Weight)
		edges = append(edges, circuitEdge{
			from:     e.From,
			to:       e.To,
			weightM:  length,
			required: true,
			geometry: info.geometry,
			forward:  true,
		})
		total += length
	}

	return edges, total
}

func collectDeadheadEdges(bg *builtGraph, hops []edgePair) []circuitEdge {
	edges := make([]circuitEdge, 0, len(hops))

	for _, hop := range hops {
		info, weight, forward, ok := bg.findEdgeBetween(hop.from, hop.to)
		if !ok {
			// Degenerate hop (nodes directly equal); skip rather than
			// fabricate a zero-length edge the Eulerian pass can't use.
			continue
		}

		edges = append(edges, circuitEdge{
			from:     hop.from,
			to:       hop.to,
			weightM:  weight,
			required: false,
			geometry: info.geometry,
			forward:  forward,
		})
	}

	return edges
}

// findEdgeBetween returns the graph edge connecting a and b (either
// direction), the edge's length in meters, and whether its geometry runs
// a -> b.
func (bg *builtGraph) findEdgeBetween(a, b string) (graphEdge, float64, bool, bool) {
	for _, e := range bg.g.Edges() {
		info, ok := bg.edgeInfo[e.ID]
		if !ok {
			continue
		}
		if e.From == a && e.To == b {
			return info, fromWeight(e.Weight), true, true
		}
		if e.From == b && e.To == a {
			return info, fromWeight(e.Weight), false, true
		}
	}

	return graphEdge{}, 0, false, false
}

func countRequired(edges []circuitEdge) int {
	n := 0
	for _, e := range edges {
		if e.required {
			n++
		}
	}

	return n
}

// chooseStartNode picks the node touched by edges nearest to start, or a
// deterministic arbitrary node (lexicographically smallest) when start is
// nil.
func chooseStartNode(bg *builtGraph, edges []circuitEdge, start *orb.Point) string {
	nodes := map[string]struct{}{}
	for _, e := range edges {
		nodes[e.from] = struct{}{}
		nodes[e.to] = struct{}{}
	}

	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	if start == nil || len(names) == 0 {
		return names[0]
	}

	best := names[0]
	bestDist := geomkit.Haversine(*start, bg.nodePoint[best])

	for _, n := range names[1:] {
		d := geomkit.Haversine(*start, bg.nodePoint[n])
		if d < bestDist {
			bestDist, best = d, n
		}
	}

	return best
}

// eulerianFrame is one step of the Hierholzer traversal: the node reached
// and the edge index used to reach it (-1 for the starting node).
type eulerianFrame struct {
	node string
	via  int
}

// eulerianCircuit computes an Eulerian circuit over edges (spec §4.8 step
// 7) using Hierholzer's algorithm, returning the traversal as a sequence
// of frames recording both the visited node and the edge used to arrive.
func eulerianCircuit(edges []circuitEdge, startNode string) ([]eulerianFrame, error) {
	adj := map[string][]int{}
	for i, e := range edges {
		adj[e.from] = append(adj[e.from], i)
		adj[e.to] = append(adj[e.to], i)
	}

	used := make([]bool, len(edges))
	ptr := map[string]int{}

	stack := []eulerianFrame{{node: startNode, via: -1}}
	var circuit []eulerianFrame

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		advanced := false
		for ptr[cur.node] < len(adj[cur.node]) {
			eIdx := adj[cur.node][ptr[cur.node]]
			ptr[cur.node]++

			if used[eIdx] {
				continue
			}
			used[eIdx] = true

			e := edges[eIdx]
			next := e.to
			if next == cur.node {
				next = e.from
			}

			stack = append(stack, eulerianFrame{node: next, via: eIdx})
			advanced = true

			break
		}

		if !advanced {
			circuit = append(circuit, cur)
			stack = stack[:len(stack)-1]
		}
	}

	for _, u := range used {
		if !u {
			return nil, ErrDisconnected
		}
	}

	// circuit was built back-to-front (Hierholzer's classic reversal).
	for i, j := 0, len(circuit)-1; i < j; i, j = i+1, j-1 {
		circuit[i], circuit[j] = circuit[j], circuit[i]
	}

	return circuit, nil
}

// stitchCoordinates walks the Eulerian frame sequence, orienting each
// edge's geometry to the traversal direction and dropping duplicated
// junction points between consecutive pieces.
func stitchCoordinates(circuit []eulerianFrame, edges []circuitEdge) []orb.Point {
	var coords []orb.Point

	for i := 1; i < len(circuit); i++ {
		frame := circuit[i]
		prev := circuit[i-1]

		e := edges[frame.via]
		traverseForward := prev.node == e.from

		pts := []orb.Point(e.geometry)
		if traverseForward != e.forward {
			pts = reversedPoints(pts)
		}

		if len(coords) > 0 && len(pts) > 0 && coords[len(coords)-1] == pts[0] {
			pts = pts[1:]
		}

		coords = append(coords, pts...)
	}

	return coords
}

func reversedPoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}

	return out
}
