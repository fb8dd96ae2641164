package construct

import (
	"sort"
)

// AllDownstreamDependencies returns everything `r` transitively depends on.
// For A -> B -> C -> D the downstream dependencies of B are [C, D].
func AllDownstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return allDependencies(adj, r), nil
}

// DirectDownstreamDependencies returns the resources `r` directly depends on.
func DirectDownstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(adj[r]), nil
}

// AllUpstreamDependencies returns everything that transitively depends on `r`.
// For A -> B -> C -> D the upstream dependencies of C are [B, A] (in that order).
func AllUpstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return allDependencies(pred, r), nil
}

// DirectUpstreamDependencies returns the resources which directly depend on `r`.
func DirectUpstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(pred[r]), nil
}

func sortedKeys(edges map[ResourceId]Edge) []ResourceId {
	var ids []ResourceId
	for d := range edges {
		ids = append(ids, d)
	}
	sort.Sort(sortedIds(ids))
	return ids
}

func allDependencies(deps map[ResourceId]map[ResourceId]Edge, r ResourceId) []ResourceId {
	visited := make(map[ResourceId]struct{})
	queue := sortedKeys(deps[r])

	var ids []ResourceId
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		ids = append(ids, id)

		for _, d := range sortedKeys(deps[id]) {
			if _, ok := visited[d]; !ok {
				queue = append(queue, d)
			}
		}
	}
	return ids
}
