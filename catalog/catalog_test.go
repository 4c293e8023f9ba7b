package catalog

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mobileV1 = `
id: mobile-crane
version: 1
name: Mobile Crane Pre-Start
sections:
  - id: outriggers
    title: Outriggers
    items:
      - id: pads
        label: Outrigger pads
        kind: checklist
        required: true
`

const mobileV2 = `
id: mobile-crane
version: 2
name: Mobile Crane Pre-Start
sections:
  - id: outriggers
    title: Outriggers
    items:
      - id: pads
        label: Outrigger pads
        kind: checklist
        required: true
      - id: boom_angle
        label: Boom angle indicator reading
        kind: numeric
        unit: deg
        min: 0
        max: 90
`

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tmpl, err := c.FindTemplate(context.Background(), "overhead-crane")
	require.NoError(t, err)
	assert.Equal(t, 1, tmpl.Version)
	assert.NoError(t, tmpl.Validate())

	item, ok := tmpl.Item(liftcheck.ItemKey{SectionID: "summary", ItemID: "overall_condition"})
	require.True(t, ok)
	sel, ok := item.Kind.(liftcheck.SingleSelect)
	require.True(t, ok)
	assert.Equal(t, []string{"Good", "Fair", "Poor"}, sel.Options)
	assert.Equal(t, "Poor", sel.ConditionalCommentOn)

	item, ok = tmpl.Item(liftcheck.ItemKey{SectionID: "identification", ItemID: "rated_capacity"})
	require.True(t, ok)
	num, ok := item.Kind.(liftcheck.Numeric)
	require.True(t, ok)
	require.NotNil(t, num.Max)
	assert.Equal(t, 500.0, *num.Max)
}

func TestLoadVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"mobile/v1.yaml": {Data: []byte(mobileV1)},
		"mobile/v2.yml":  {Data: []byte(mobileV2)},
		"README.md":      {Data: []byte("not a template")},
	}
	c, err := Load(fsys)
	require.NoError(t, err)
	ctx := context.Background()

	latest, err := c.FindTemplate(ctx, "mobile-crane")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	v1, err := c.FindTemplateVersion(ctx, "mobile-crane", 1)
	require.NoError(t, err)
	assert.Len(t, v1.Keys(), 1)

	_, err = c.FindTemplateVersion(ctx, "mobile-crane", 3)
	assert.Equal(t, liftcheck.ENOTFOUND, liftcheck.ErrorCode(err))

	_, err = c.FindTemplate(ctx, "tower-crane")
	assert.Equal(t, liftcheck.ENOTFOUND, liftcheck.ErrorCode(err))

	all, err := c.FindTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Version)
	assert.Len(t, c.All(), 2)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte(mobileV1)},
				"b.yaml": {Data: []byte(mobileV1)},
			},
		},
		{
			name: "unknown kind",
			fsys: fstest.MapFS{"a.yaml": {Data: []byte(`
id: x
version: 1
sections:
  - id: s
    items:
      - id: i
        kind: slider
`)}},
		},
		{
			name: "no sections",
			fsys: fstest.MapFS{"a.yaml": {Data: []byte("id: x\nversion: 1\n")}},
		},
		{
			name: "malformed yaml",
			fsys: fstest.MapFS{"a.yaml": {Data: []byte("id: [unclosed")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	tmpl, err := c.FindTemplate(context.Background(), "overhead-crane")
	require.NoError(t, err)

	data, err := Marshal(tmpl)
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, tmpl.Sections, parsed.Sections)
}

func TestCache(t *testing.T) {
	tmpl := &liftcheck.Template{ID: "mobile-crane", Version: 2}
	var latestCalls, versionCalls int
	next := &mock.TemplateCatalog{
		FindTemplateFn: func(_ context.Context, id string) (*liftcheck.Template, error) {
			latestCalls++
			if id != tmpl.ID {
				return nil, liftcheck.NotFound("Template not found")
			}
			return tmpl, nil
		},
		FindTemplateVersionFn: func(_ context.Context, id string, version int) (*liftcheck.Template, error) {
			versionCalls++
			return tmpl, nil
		},
	}
	c := NewCache(next, time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := c.FindTemplate(ctx, "mobile-crane")
		require.NoError(t, err)
		assert.Same(t, tmpl, got)
	}
	assert.Equal(t, 1, latestCalls)

	// The latest lookup also primes the pinned version.
	_, err := c.FindTemplateVersion(ctx, "mobile-crane", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, versionCalls)

	// Misses are not cached.
	for range 2 {
		_, err := c.FindTemplate(ctx, "tower-crane")
		assert.Equal(t, liftcheck.ENOTFOUND, liftcheck.ErrorCode(err))
	}
	assert.Equal(t, 3, latestCalls)

	c.Flush()
	_, err = c.FindTemplate(ctx, "mobile-crane")
	require.NoError(t, err)
	assert.Equal(t, 4, latestCalls)
}
