package routesolver

import (
	"math"

	"github.com/katalvlaran/lvlath/dijkstra"
)

// edgePair is one hop of a deadhead path, added to the Eulerian multigraph
// M alongside the required edges.
type edgePair struct {
	from, to string
}

type pairKey [2]string

// matchOddNodes computes all-pairs shortest paths between the odd-degree
// nodes of H (spec step 3) and a greedy nearest-first perfect matching
// over them, not guaranteed minimum-weight (spec step 4's permitted fallback — exact
// blossom matching is not exposed by the graph library used here), then
// expands each matched pair's shortest path into deadhead edges (step 5).
func matchOddNodes(bg *builtGraph, odd []string) ([]edgePair, float64, error) {
	if len(odd) == 0 {
		return nil, 0, nil
	}
	if len(odd)%2 != 0 {
		// The handshake lemma guarantees |O| is even for any finite graph;
		// reaching this means the degree count itself is inconsistent.
		return nil, 0, ErrMatchingFailed
	}

	dist := map[pairKey]float64{}
	path := map[pairKey][]string{}

	for _, u := range odd {
		distances, prev, err := dijkstra.Dijkstra(bg.g, dijkstra.Source(u), dijkstra.WithReturnPath())
		if err != nil {
			return nil, 0, ErrMatchingFailed
		}

		for _, v := range odd {
			if u == v {
				continue
			}

			d, ok := distances[v]
			if !ok {
				return nil, 0, ErrDisconnected
			}

			dist[pairKey{u, v}] = fromWeight(d)
			path[pairKey{u, v}] = reconstructPath(prev, u, v)
		}
	}

	remaining := append([]string(nil), odd...)

	var edges []edgePair
	var total float64

	for len(remaining) > 0 {
		bestI, bestJ, bestDist := -1, -1, math.Inf(1)

		for i := 0; i < len(remaining); i++ {
			for j := i + 1; j < len(remaining); j++ {
				d := dist[pairKey{remaining[i], remaining[j]}]
				if d < bestDist {
					bestDist, bestI, bestJ = d, i, j
				}
			}
		}

		if bestI < 0 {
			return nil, 0, ErrMatchingFailed
		}

		u, v := remaining[bestI], remaining[bestJ]
		hops := path[pairKey{u, v}]
		for k := 0; k < len(hops)-1; k++ {
			edges = append(edges, edgePair{from: hops[k], to: hops[k+1]})
		}
		total += bestDist

		remaining = append(remaining[:bestJ], remaining[bestJ+1:]...)
		remaining = append(remaining[:bestI], remaining[bestI+1:]...)
	}

	return edges, total, nil
}

// reconstructPath walks dijkstra's predecessor map backward from v to u and
// returns the path in forward (u -> v) order.
func reconstructPath(prev map[string]string, u, v string) []string {
	path := []string{v}
	cur := v
	for cur != u {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
	}

	reversed := make([]string, len(path))
	for i, n := range path {
		reversed[len(path)-1-i] = n
	}

	return reversed
}
