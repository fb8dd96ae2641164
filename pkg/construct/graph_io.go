package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type ioEdge struct {
	Source ResourceId
	Target ResourceId
}

func (e ioEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Target)
}

func (e ioEdge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *ioEdge) UnmarshalText(data []byte) error {
	s := string(data)

	source, target, found := strings.Cut(s, " -> ")
	if !found {
		target, source, found = strings.Cut(s, " <- ")
		if !found {
			return errors.New("invalid edge format, expected either `source -> target` or `target <- source`")
		}
	}

	srcErr := e.Source.UnmarshalText([]byte(source))
	tgtErr := e.Target.UnmarshalText([]byte(target))
	return errors.Join(srcErr, tgtErr)
}

type ioResource struct {
	Properties Properties `yaml:"properties,omitempty"`
	Options    Options    `yaml:"options,omitempty"`
}

// GraphToYAML renders the graph `g` as YAML to `w`. Resources are written in creation order and edges
// are sorted by source, then target, so the output is stable between runs.
func GraphToYAML(g Graph, w io.Writer) error {
	order, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	resources := &yaml.Node{Kind: yaml.MappingNode}
	var errs error
	for _, rid := range order {
		r, err := g.Vertex(rid)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		var value yaml.Node
		if err := value.Encode(ioResource{Properties: r.Properties, Options: r.Options}); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not encode %s: %w", rid, err))
			continue
		}
		resources.Content = append(resources.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: rid.String()},
			&value,
		)
	}

	var sorted []ioEdge
	for source, targets := range adj {
		for target := range targets {
			sorted = append(sorted, ioEdge{Source: source, Target: target})
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return ResourceIdLess(sorted[i].Source, sorted[j].Source)
		}
		return ResourceIdLess(sorted[i].Target, sorted[j].Target)
	})
	edges := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range sorted {
		edges.Content = append(edges.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.String()})
	}
	if errs != nil {
		return errs
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "resources"}, resources,
		{Kind: yaml.ScalarNode, Value: "edges"}, edges,
	}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// AddFromYAML reads a graph previously written by [GraphToYAML]. Deferred values come back as
// their string form.
func AddFromYAML(g Graph, r io.Reader) error {
	var y struct {
		Resources map[ResourceId]ioResource `yaml:"resources"`
		Edges     []ioEdge                  `yaml:"edges"`
	}
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		return err
	}

	var errs error
	for rid, res := range y.Resources {
		props := res.Properties
		if props == nil {
			props = make(Properties)
		}
		errs = errors.Join(errs, g.AddVertex(&Resource{
			ID:         rid,
			Properties: props,
			Options:    res.Options,
		}))
	}
	if errs != nil {
		return errs
	}

	for _, e := range y.Edges {
		errs = errors.Join(errs, g.AddEdge(e.Source, e.Target))
	}
	return errs
}
