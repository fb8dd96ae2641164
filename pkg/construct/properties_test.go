package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_splitPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "empty", path: "", want: nil},
		{name: "single", path: "foo", want: []string{"foo"}},
		{name: "dotted", path: "foo.bar", want: []string{"foo", ".bar"}},
		{name: "bracketed", path: "foo[bar]", want: []string{"foo", "[bar]"}},
		{name: "long mixed", path: "foo.bar[baz].qux", want: []string{"foo", ".bar", "[baz]", ".qux"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPath(tt.path))
		})
	}
}

func TestProperties_GetProperty(t *testing.T) {
	props := Properties{
		"name": "assets",
		"cors": map[string]any{
			"allowOrigins": []any{"*", "https://example.com"},
		},
	}
	tests := []struct {
		name    string
		path    string
		want    any
		wantErr bool
	}{
		{name: "top-level field", path: "name", want: "assets"},
		{name: "nested field", path: "cors.allowOrigins", want: []any{"*", "https://example.com"}},
		{name: "array index", path: "cors.allowOrigins[1]", want: "https://example.com"},
		{name: "missing", path: "cors.maxAge", want: nil},
		{name: "index out of range", path: "cors.allowOrigins[5]", want: nil},
		{name: "not a container", path: "name.first", wantErr: true},
		{name: "bad index", path: "cors.allowOrigins[x]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := props.GetProperty(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProperties_SetProperty(t *testing.T) {
	props := Properties{"name": "assets"}
	require.NoError(t, props.SetProperty("cors.maxAge", 60))
	require.NoError(t, props.SetProperty("cors.allowMethods", []string{"GET"}))

	assert.Equal(t, Properties{
		"name": "assets",
		"cors": map[string]any{"maxAge": 60, "allowMethods": []string{"GET"}},
	}, props)

	assert.Error(t, props.SetProperty("name.first", "x"))
	assert.Error(t, props.SetProperty("", "x"))
}

func TestProperties_Clone(t *testing.T) {
	props := Properties{"a": 1}
	c := props.Clone()
	c["a"] = 2
	assert.Equal(t, 1, props["a"])
	assert.Equal(t, Properties{}, Properties(nil).Clone())
}
