package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceId_roundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   ResourceId
		str  string
	}{
		{
			name: "provider and type",
			id:   ResourceId{Provider: "aws", Type: "s3_bucket"},
			str:  "aws:s3_bucket",
		},
		{
			name: "name",
			id:   ResourceId{Provider: "aws", Type: "s3_bucket", Name: "assets"},
			str:  "aws:s3_bucket:assets",
		},
		{
			name: "namespace",
			id:   ResourceId{Provider: "cloudflare", Type: "record", Namespace: "Site", Name: "www.example.com"},
			str:  "cloudflare:record:Site:www.example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.str, tt.id.String())

			got, err := ParseId(tt.str)
			if assert.NoError(err) {
				assert.Equal(tt.id, got)
			}
		})
	}
}

func TestResourceId_invalid(t *testing.T) {
	for _, s := range []string{"aws", "aws:s3 bucket:x", "aws:s3_bucket:a b"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseId(s)
			assert.Error(t, err)
		})
	}
}

func TestResourceId_Matches(t *testing.T) {
	ids := []ResourceId{
		{Provider: "aws", Type: "s3_bucket", Name: "a"},
		{Provider: "aws", Type: "route53_record", Name: "b"},
		{Provider: "cloudflare", Type: "record", Name: "c"},
	}
	assert.Equal(t, ids[:2], SelectIds(ids, ResourceId{Provider: "aws"}))
	assert.Equal(t, ids[1:2], SelectIds(ids, ResourceId{Type: "route53_record"}))
	assert.Empty(t, SelectIds(ids, ResourceId{Provider: "vercel"}))
}

func TestPropertyRef_text(t *testing.T) {
	ref := PropertyRef{Resource: ResourceId{Provider: "aws", Type: "s3_bucket", Name: "assets"}, Property: "arn"}
	b, err := ref.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "aws:s3_bucket:assets#arn", string(b))

	var back PropertyRef
	assert.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, ref, back)

	assert.Error(t, back.UnmarshalText([]byte("aws:s3_bucket:assets")))
}
