package liftcheck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateValidate(t *testing.T) {
	assert.NoError(t, newTestTemplate().Validate())

	tests := []struct {
		name   string
		mutate func(*Template)
		field  string
	}{
		{name: "missing id", mutate: func(t *Template) { t.ID = "" }, field: "id"},
		{name: "zero version", mutate: func(t *Template) { t.Version = 0 }, field: "version"},
		{name: "no sections", mutate: func(t *Template) { t.Sections = nil }, field: "sections"},
		{
			name:   "duplicate item",
			mutate: func(t *Template) { t.Sections[0].Items[1].ID = "hook" },
			field:  "hoist.hook",
		},
		{
			name:   "nil kind",
			mutate: func(t *Template) { t.Sections[0].Items[0].Kind = nil },
			field:  "hoist.hook",
		},
		{
			name: "conditional value not an option",
			mutate: func(t *Template) {
				t.Sections[1].Items[0].Kind = SingleSelect{Options: []string{"Good"}, ConditionalCommentOn: "Bad"}
			},
			field: "general.condition",
		},
		{
			name: "min above max",
			mutate: func(t *Template) {
				t.Sections[1].Items[1].Kind = Numeric{Min: float64Ptr(10), Max: float64Ptr(1)}
			},
			field: "general.swl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := newTestTemplate()
			tt.mutate(tmpl)
			err := tmpl.Validate()
			require.Error(t, err)
			assert.Equal(t, EINVALID, ErrorCode(err))
			assert.Contains(t, ErrorFields(err), tt.field)
		})
	}
}

func TestItemDefinition(t *testing.T) {
	t.Run("photo required defaults to one photo", func(t *testing.T) {
		item, err := ItemDefinition{ID: "plate", Kind: KindPhotoRequired}.Item()
		require.NoError(t, err)
		assert.Equal(t, PhotoRequired{MinPhotos: 1}, item.Kind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ItemDefinition{ID: "x", Kind: "slider"}.Item()
		assert.Equal(t, EINVALID, ErrorCode(err))
	})

	t.Run("definition round trip keeps only kind fields", func(t *testing.T) {
		item := TemplateItem{ID: "swl", Label: "Rated capacity", Kind: Numeric{Unit: "t", Max: float64Ptr(20)}}
		def := item.Definition()
		assert.Equal(t, KindNumeric, def.Kind)
		assert.Empty(t, def.Options)

		back, err := def.Item()
		require.NoError(t, err)
		assert.Equal(t, item, back)
	})
}

func TestTemplateJSON(t *testing.T) {
	tmpl := newTestTemplate()
	data, err := json.Marshal(tmpl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"single_select"`)
	assert.Contains(t, string(data), `"conditionalCommentOn":"Poor"`)

	var decoded Template
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tmpl.Sections, decoded.Sections)
}

func TestTemplateItemLookup(t *testing.T) {
	tmpl := newTestTemplate()

	item, ok := tmpl.Item(keyCondition)
	require.True(t, ok)
	assert.Equal(t, KindSingleSelect, item.Kind.Name())

	_, ok = tmpl.Item(ItemKey{SectionID: "hoist", ItemID: "condition"})
	assert.False(t, ok)

	keys := tmpl.Keys()
	assert.Len(t, keys, 8)
	assert.Equal(t, keyHook, keys[0])
}
