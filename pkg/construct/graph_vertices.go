package construct

import (
	"errors"
	"fmt"
	"sort"
)

// ToplogicalSort provides a stable topological ordering of resource IDs. Dependents come before their
// dependencies; use [ReverseTopologicalSort] for creation order.
// Cycles do not fail the sort: when no vertex is free of predecessors, the one with the fewest remaining
// predecessors (then the lowest id) is taken next.
func ToplogicalSort(g Graph) ([]ResourceId, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}

	predecessorMap, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}

	if len(predecessorMap) == 0 {
		return nil, nil
	}

	queue := make([]ResourceId, 0)
	queued := make(map[ResourceId]struct{})
	enqueue := func(vs ...ResourceId) {
		for _, vertex := range vs {
			queue = append(queue, vertex)
			queued[vertex] = struct{}{}
		}
	}

	for vertex, predecessors := range predecessorMap {
		if len(predecessors) == 0 {
			enqueue(vertex)
		}
	}

	enqueueArbitrary := func() {
		remaining := make([]ResourceId, 0, len(predecessorMap))
		for vertex := range predecessorMap {
			remaining = append(remaining, vertex)
		}
		sort.Slice(remaining, func(i, j int) bool {
			iCount := len(predecessorMap[remaining[i]])
			jCount := len(predecessorMap[remaining[j]])
			if iCount != jCount {
				return iCount < jCount
			}
			return ResourceIdLess(remaining[i], remaining[j])
		})
		enqueue(remaining[0])
	}

	if len(queue) == 0 {
		enqueueArbitrary()
	}

	order := make([]ResourceId, 0, len(predecessorMap))
	visited := make(map[ResourceId]struct{})

	sort.Sort(sortedIds(queue))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, ok := visited[current]; ok {
			continue
		}

		order = append(order, current)
		visited[current] = struct{}{}
		delete(predecessorMap, current)

		frontier := make([]ResourceId, 0)
		for vertex, predecessors := range predecessorMap {
			delete(predecessors, current)
			if len(predecessors) != 0 {
				continue
			}
			if _, ok := queued[vertex]; ok {
				continue
			}
			frontier = append(frontier, vertex)
		}
		sort.Sort(sortedIds(frontier))
		enqueue(frontier...)

		if len(queue) == 0 && len(predecessorMap) > 0 {
			enqueueArbitrary()
		}
	}

	return order, nil
}

// ReverseTopologicalSort is like TopologicalSort, but returns the reverse order: the order in which
// resources should be created.
func ReverseTopologicalSort(g Graph) ([]ResourceId, error) {
	topo, err := ToplogicalSort(g)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(topo)/2; i++ {
		topo[i], topo[len(topo)-i-1] = topo[len(topo)-i-1], topo[i]
	}
	return topo, nil
}

// WalkGraphFunc is much like `fs.WalkDirFunc` and is used in `WalkGraph` for the callback
// during graph traversal. Return `StopWalk` to end the walk.
type WalkGraphFunc func(id ResourceId, resource *Resource, nerr error) error

// StopWalk is a special error that can be returned from WalkGraphFunc to stop walking the graph.
var StopWalk = errors.New("stop walking")

func walkGraph(g Graph, ids []ResourceId, fn WalkGraphFunc) (err error) {
	for _, id := range ids {
		v, verr := g.Vertex(id)
		err = errors.Join(err, verr)
		err = fn(id, v, err)
		if errors.Is(err, StopWalk) {
			return nil
		}
	}
	return err
}

func WalkGraph(g Graph, fn WalkGraphFunc) error {
	topo, err := ToplogicalSort(g)
	if err != nil {
		return err
	}
	return walkGraph(g, topo, fn)
}
