package construct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
)

type (
	// Graph holds every resource recorded during a deployment pass. An edge `A -> B` means A depends on B,
	// so B must be created first.
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
	))
}

// AddResource adds `r` to the graph along with an edge to each of its [Resource.Dependencies].
// Every dependency must already be in the graph; otherwise nothing is added.
func AddResource(g Graph, r *Resource) error {
	deps := r.Dependencies()
	var errs error
	for _, dep := range deps {
		if _, err := g.Vertex(dep); err != nil {
			errs = errors.Join(errs, fmt.Errorf("resource %s depends on unknown resource %s", r.ID, dep))
		}
	}
	if errs != nil {
		return errs
	}
	if err := g.AddVertex(r); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("resource %s already exists", r.ID)
		}
		return fmt.Errorf("could not add resource %s: %w", r.ID, err)
	}
	for _, dep := range deps {
		if err := g.AddEdge(r.ID, dep); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			errs = errors.Join(errs, fmt.Errorf("could not add dependency %s -> %s: %w", r.ID, dep, err))
		}
	}
	return errs
}

// Resources returns every resource in the graph in creation order (dependencies first).
func Resources(g Graph) ([]*Resource, error) {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return nil, err
	}
	rs := make([]*Resource, 0, len(ids))
	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// Hash is a digest of the graph's resource ids and edges. Properties are not included.
func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := stringTo(g, sum)
	return sum.Sum(nil), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := ToplogicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		_, err := fmt.Fprintf(w, "%s\n", id)
		if err != nil {
			return err
		}

		targets := make([]ResourceId, 0, len(adjacent[id]))
		for t := range adjacent[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))

		for _, t := range targets {
			// Adjacent edges always have `id` as the source, so just write the target.
			_, err := fmt.Fprintf(w, "-> %s\n", t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
