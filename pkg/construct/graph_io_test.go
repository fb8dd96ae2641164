package construct

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGraphToYAML(t *testing.T) {
	makeGraph := func(elements ...any) Graph {
		return MakeGraph(t, NewGraph(), elements...)
	}
	tests := []struct {
		name      string
		g         Graph
		resources []string
		edges     []string
		props     map[string]any
	}{
		{
			name: "empty graph",
			g:    NewGraph(),
		},
		{
			name:      "resources in creation order",
			g:         makeGraph("p:t:a -> p:t:b", "p:t:b -> p:t:c"),
			resources: []string{"p:t:c", "p:t:b", "p:t:a"},
			edges:     []string{"p:t:a -> p:t:b", "p:t:b -> p:t:c"},
		},
		{
			name:      "edges sorted by source then target",
			g:         makeGraph("p:t:z -> p:t:a", "p:t:b -> p:t:c", "p:t:b -> p:t:a"),
			resources: []string{"p:t:a", "p:t:c", "p:t:z", "p:t:b"},
			edges:     []string{"p:t:b -> p:t:a", "p:t:b -> p:t:c", "p:t:z -> p:t:a"},
		},
		{
			name: "properties and options",
			g: makeGraph(
				&Resource{
					ID:         ResourceId{Provider: "aws", Type: "s3_bucket", Name: "assets"},
					Properties: Properties{"forceDestroy": true, "bucket": "app-dev-assets"},
					Options:    Options{Parent: "Bucket::Assets", RetainOnDelete: true},
				},
			),
			resources: []string{"aws:s3_bucket:assets"},
			props: map[string]any{
				"properties": map[string]any{"bucket": "app-dev-assets", "forceDestroy": true},
				"options":    map[string]any{"parent": "Bucket::Assets", "retainOnDelete": true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			buf := new(bytes.Buffer)
			require.NoError(t, GraphToYAML(tt.g, buf))

			var doc yaml.Node
			require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
			root := doc.Content[0]
			require.Len(t, root.Content, 4)
			assert.Equal("resources", root.Content[0].Value)
			assert.Equal("edges", root.Content[2].Value)

			var gotResources []string
			for i := 0; i < len(root.Content[1].Content); i += 2 {
				gotResources = append(gotResources, root.Content[1].Content[i].Value)
			}
			assert.Equal(tt.resources, gotResources)

			var gotEdges []string
			for _, e := range root.Content[3].Content {
				gotEdges = append(gotEdges, e.Value)
			}
			assert.Equal(tt.edges, gotEdges)

			if tt.props != nil {
				var decoded struct {
					Resources map[string]map[string]any `yaml:"resources"`
				}
				require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
				assert.Equal(tt.props, decoded.Resources[tt.resources[0]])
			}
		})
	}
}

func TestAddFromYAML(t *testing.T) {
	src := `resources:
  aws:s3_bucket:assets:
    properties:
      bucket: app-dev-assets
  aws:s3_bucket_policy:assets:
    options:
      parent: Bucket::Assets
edges:
  - aws:s3_bucket_policy:assets -> aws:s3_bucket:assets
`
	g := NewGraph()
	require.NoError(t, AddFromYAML(g, strings.NewReader(src)))

	expect := MakeGraph(t, NewGraph(), "aws:s3_bucket_policy:assets -> aws:s3_bucket:assets")
	AssertGraphEqual(t, expect, g)

	policy, err := g.Vertex(ResourceId{Provider: "aws", Type: "s3_bucket_policy", Name: "assets"})
	require.NoError(t, err)
	assert.Equal(t, "Bucket::Assets", policy.Options.Parent)

	bucket, err := g.Vertex(ResourceId{Provider: "aws", Type: "s3_bucket", Name: "assets"})
	require.NoError(t, err)
	assert.Equal(t, "app-dev-assets", bucket.Properties["bucket"])
}
