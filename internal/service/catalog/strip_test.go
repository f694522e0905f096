package catalog

import (
	"testing"

	"mediadb/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name string
		doc  models.Document
		want models.Document
	}{
		{
			name: "cover record keeps its payload, others lose data",
			doc: models.Document{
				"series": list{obj{"id": "s1", "title": "One", "images": list{
					obj{"id": "i1", "data": payload, "iscover": true},
					obj{"id": "i2", "name": "alt", "data": payload},
				}}},
			},
			want: models.Document{
				"series": list{obj{"id": "s1", "title": "One", "images": list{
					obj{"id": "i1", "data": payload, "iscover": true},
					obj{"id": "i2", "name": "alt"},
				}}},
			},
		},
		{
			name: "remote url image is preserved",
			doc: models.Document{
				"characters": list{obj{"id": float64(1), "image": "https://cdn.example.com/a.png"}},
			},
			want: models.Document{
				"characters": list{obj{"id": float64(1), "image": "https://cdn.example.com/a.png"}},
			},
		},
		{
			name: "inline image becomes null",
			doc: models.Document{
				"characters": list{obj{"id": float64(1), "image": payload}},
			},
			want: models.Document{
				"characters": list{obj{"id": float64(1), "image": nil}},
			},
		},
		{
			name: "url record without data is unchanged",
			doc: models.Document{
				"episodes": list{obj{"id": "e1", "images": list{obj{"id": "i1", "url": "s3://bucket/e1.png"}}}},
			},
			want: models.Document{
				"episodes": list{obj{"id": "e1", "images": list{obj{"id": "i1", "url": "s3://bucket/e1.png"}}}},
			},
		},
		{
			name: "settings and undeclared keys pass through",
			doc: models.Document{
				"settings": obj{"image": payload},
				"extra":    list{obj{"id": "x", "image": payload}},
			},
			want: models.Document{
				"settings": obj{"image": payload},
				"extra":    list{obj{"id": "x", "image": payload}},
			},
		},
		{
			name: "entities without image fields are untouched",
			doc: models.Document{
				"series": list{obj{"id": "s1", "title": "Plain"}, "not-an-entity"},
			},
			want: models.Document{
				"series": list{obj{"id": "s1", "title": "Plain"}, "not-an-entity"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strip(s, tt.doc)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrip_DoesNotMutateInput(t *testing.T) {
	s := testSchema(t)
	record := obj{"id": "i2", "data": payload}
	doc := models.Document{"series": list{obj{"id": "s1", "images": list{record}}}}

	_ = Strip(s, doc)

	assert.Equal(t, payload, record["data"])
}

func TestStrip_Idempotent(t *testing.T) {
	s := testSchema(t)
	doc := models.Document{
		"series": list{
			obj{"id": "s1", "images": list{
				obj{"id": "i1", "data": payload, "iscover": true},
				obj{"id": "i2", "data": payload, "url": "https://x/i2.png"},
				obj{"id": "i3"},
			}},
		},
		"characters": list{
			obj{"id": float64(1), "image": payload},
			obj{"id": float64(2), "image": "http://x/b.png"},
			obj{"id": float64(3), "image": nil},
		},
		"settings": obj{"theme": "dark"},
	}

	once := Strip(s, doc)
	twice := Strip(s, once)
	require.Equal(t, once, twice)
}

// A cover record keeps its payload in the public view while sibling records
// in the same collection lose theirs; the admin view is the stored document.
func TestStrip_CoverScenario(t *testing.T) {
	s := testSchema(t)
	doc := models.Document{
		"series": list{
			obj{"id": "s1", "images": list{obj{"id": "i1", "data": payload, "iscover": true}}},
			obj{"id": "s2", "images": list{obj{"id": "i9", "data": payload}}},
		},
	}

	public := Strip(s, doc)

	series := public["series"].(list)
	assert.Equal(t, obj{"id": "i1", "data": payload, "iscover": true}, series[0].(obj)["images"].(list)[0])
	assert.NotContains(t, series[1].(obj)["images"].(list)[0], "data")
}

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"http://x/a.png", true},
		{"https://cdn.example.com/a.png", true},
		{"s3://bucket/key", true},
		{"data:image/png;base64,AAAA", false},
		{"iVBORw0KGgo=", false},
		{"/relative/path.png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemoteURL(tt.value))
		})
	}
}
