package liftcheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPass(t *testing.T) {
	r := ItemResult{Key: keyHook, Kind: KindChecklist}

	passed := MarkPass(r)
	assert.Equal(t, ResultPass, passed.Result)
	assert.Equal(t, ResultUnanswered, MarkPass(passed).Result)

	// Passing a defective row drops the defect.
	defective := ItemResult{Key: keyHook, Kind: KindChecklist, Result: ResultDefect, Defect: &Defect{Severity: SeverityMajor}}
	out := MarkPass(defective)
	assert.Equal(t, ResultPass, out.Result)
	assert.Nil(t, out.Defect)
	assert.NotNil(t, defective.Defect)
}

func TestMarkDefectToggle(t *testing.T) {
	r := ItemResult{Key: keyHook, Kind: KindChecklist, Comment: "checked"}

	draft := MarkDefect(r)
	assert.Equal(t, ResultDefect, draft.Result)
	require.NotNil(t, draft.Defect)
	assert.Equal(t, SeverityMinor, draft.Defect.Severity)
	assert.Equal(t, TimeframeWithin7Days, draft.Defect.Timeframe)
	assert.Empty(t, draft.Defect.Photos)

	back := MarkDefect(draft)
	assert.Equal(t, ResultUnanswered, back.Result)
	assert.Nil(t, back.Defect)
	assert.Equal(t, "checked", back.Comment)
}

func TestSaveDefectDetails(t *testing.T) {
	details := DefectDetails{
		DefectType: DefectTypeStructural,
		Severity:   SeverityMajor,
		Timeframe:  TimeframeWithin30Days,
		Notes:      "Crack at weld toe",
	}

	tests := []struct {
		name     string
		photos   []Photo
		wantCode string
	}{
		{name: "no photos", photos: nil, wantCode: EMISSINGPHOTO},
		{name: "empty photo list", photos: []Photo{}, wantCode: EMISSINGPHOTO},
		{name: "one photo", photos: testPhotos(1)},
		{name: "five photos", photos: testPhotos(5)},
		{name: "six photos", photos: testPhotos(6), wantCode: EPHOTOLIMIT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MarkDefect(ItemResult{Key: keyRope, Kind: KindChecklist})
			d := details
			d.Photos = tt.photos

			out, err := SaveDefectDetails(r, d)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, ErrorCode(err))
				assert.Equal(t, r, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ResultDefect, out.Result)
			require.NotNil(t, out.Defect)
			assert.Equal(t, SeverityMajor, out.Defect.Severity)
			assert.Equal(t, "Crack at weld toe", out.Defect.Notes)
			assert.Len(t, out.Defect.Photos, len(tt.photos))
		})
	}
}

func TestSaveDefectDetailsValidation(t *testing.T) {
	r := ItemResult{Key: keyRope, Kind: KindChecklist}
	_, err := SaveDefectDetails(r, DefectDetails{
		DefectType: "Cosmic",
		Severity:   "Catastrophic",
		Timeframe:  "Eventually",
		Photos:     testPhotos(1),
	})
	require.Error(t, err)
	assert.Equal(t, EINVALID, ErrorCode(err))
	assert.Len(t, ErrorFields(err), 3)
}

func TestSaveDefectDetailsKeepsQuoteStatus(t *testing.T) {
	r := ItemResult{
		Key:    keyRope,
		Kind:   KindChecklist,
		Result: ResultDefect,
		Defect: &Defect{Severity: SeverityMinor, Timeframe: TimeframeWithin7Days, Photos: testPhotos(1), QuoteStatus: QuoteNow},
	}
	out, err := SaveDefectDetails(r, DefectDetails{Severity: SeverityMajor, Timeframe: TimeframeImmediately, Photos: testPhotos(2)})
	require.NoError(t, err)
	assert.Equal(t, QuoteNow, out.Defect.QuoteStatus)
	assert.Equal(t, SeverityMajor, out.Defect.Severity)
}

func TestSaveDefectDetailsDoesNotAliasPhotos(t *testing.T) {
	photos := testPhotos(2)
	out, err := SaveDefectDetails(ItemResult{Key: keyRope, Kind: KindChecklist}, DefectDetails{
		Severity:  SeverityMinor,
		Timeframe: TimeframeWithin7Days,
		Photos:    photos,
	})
	require.NoError(t, err)

	photos[0].Filename = "changed.jpg"
	assert.NotEqual(t, "changed.jpg", out.Defect.Photos[0].Filename)
}

func TestResolveCarryForward(t *testing.T) {
	existing := testPhotos(2)
	r := ItemResult{Key: keyBrake, Kind: KindChecklist, HasPreviousDefect: true, UnresolvedPhotos: existing}

	t.Run("still unresolved", func(t *testing.T) {
		out, rejected, err := ResolveCarryForward(r, UnresolvedStill, testPhotos(1))
		require.NoError(t, err)
		assert.Empty(t, rejected)
		assert.Equal(t, ResultUnresolved, out.Result)
		assert.Equal(t, UnresolvedStill, out.UnresolvedStatus)
		assert.Len(t, out.UnresolvedPhotos, 3)
		assert.Len(t, r.UnresolvedPhotos, 2)
	})

	t.Run("resolved", func(t *testing.T) {
		out, _, err := ResolveCarryForward(r, UnresolvedResolved, nil)
		require.NoError(t, err)
		assert.Equal(t, ResultPass, out.Result)
		assert.Equal(t, UnresolvedResolved, out.UnresolvedStatus)
		assert.Equal(t, existing, out.UnresolvedPhotos)
	})

	t.Run("photos past the cap are rejected", func(t *testing.T) {
		out, rejected, err := ResolveCarryForward(r, UnresolvedStill, testPhotos(4))
		require.NoError(t, err)
		assert.Len(t, out.UnresolvedPhotos, MaxPhotosPerItem)
		require.Len(t, rejected, 1)
		assert.Equal(t, EPHOTOLIMIT, rejected[0].Code)
	})

	t.Run("no previous defect", func(t *testing.T) {
		_, _, err := ResolveCarryForward(ItemResult{Key: keyHook, Kind: KindChecklist}, UnresolvedStill, nil)
		assert.Equal(t, EINVALID, ErrorCode(err))
	})

	t.Run("unknown choice", func(t *testing.T) {
		_, _, err := ResolveCarryForward(r, "maybe", nil)
		assert.Equal(t, EINVALID, ErrorCode(err))
	})
}

func TestClearResult(t *testing.T) {
	r := ItemResult{
		Key:               keyBrake,
		Kind:              KindChecklist,
		Result:            ResultUnresolved,
		HasPreviousDefect: true,
		UnresolvedStatus:  UnresolvedStill,
		Comment:           "seen",
		Photos:            testPhotos(1),
	}
	out := ClearResult(r)
	assert.Equal(t, ResultUnanswered, out.Result)
	assert.Empty(t, out.UnresolvedStatus)
	assert.True(t, out.HasPreviousDefect)
	assert.Equal(t, "seen", out.Comment)
	assert.Len(t, out.Photos, 1)
}

func TestApplyAnswer(t *testing.T) {
	tmpl := newTestTemplate()
	item := func(id string) TemplateItem {
		it, ok := tmpl.Item(ItemKey{SectionID: "general", ItemID: id})
		require.True(t, ok)
		return it
	}

	tests := []struct {
		name     string
		item     TemplateItem
		answer   Answer
		wantCode string
		check    func(t *testing.T, r ItemResult)
	}{
		{
			name:   "select option",
			item:   item("condition"),
			answer: Answer{SelectedValue: stringPtr("Fair")},
			check: func(t *testing.T, r ItemResult) {
				assert.Equal(t, "Fair", *r.SelectedValue)
			},
		},
		{
			name:     "select unknown option",
			item:     item("condition"),
			answer:   Answer{SelectedValue: stringPtr("Excellent")},
			wantCode: EINVALID,
		},
		{
			name:   "numeric in range",
			item:   item("swl"),
			answer: Answer{NumericValue: float64Ptr(12.5)},
			check: func(t *testing.T, r ItemResult) {
				assert.Equal(t, 12.5, *r.NumericValue)
			},
		},
		{
			name:     "numeric above max",
			item:     item("swl"),
			answer:   Answer{NumericValue: float64Ptr(250)},
			wantCode: EINVALID,
		},
		{
			name:   "date",
			item:   item("load_test"),
			answer: Answer{DateValue: stringPtr("2025-11-04")},
			check: func(t *testing.T, r ItemResult) {
				assert.Equal(t, time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC), *r.DateValue)
			},
		},
		{
			name:     "bad date",
			item:     item("load_test"),
			answer:   Answer{DateValue: stringPtr("04/11/2025")},
			wantCode: EINVALID,
		},
		{
			name:   "text with comment",
			item:   item("notes"),
			answer: Answer{TextValue: stringPtr("Runway rails aligned"), Comment: stringPtr("ok")},
			check: func(t *testing.T, r ItemResult) {
				assert.Equal(t, "Runway rails aligned", *r.TextValue)
				assert.Equal(t, "ok", r.Comment)
			},
		},
		{
			name:     "value on photo item",
			item:     item("nameplate"),
			answer:   Answer{TextValue: stringPtr("x")},
			wantCode: EINVALID,
		},
		{
			name:   "comment on photo item",
			item:   item("nameplate"),
			answer: Answer{Comment: stringPtr("plate worn")},
			check: func(t *testing.T, r ItemResult) {
				assert.Equal(t, "plate worn", r.Comment)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ItemResult{Key: ItemKey{SectionID: "general", ItemID: tt.item.ID}, Kind: tt.item.Kind.Name()}
			out, err := ApplyAnswer(r, tt.item, tt.answer)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, ErrorCode(err))
				assert.Equal(t, r, out)
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}
