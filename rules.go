package liftcheck

import (
	"slices"
	"time"
)

// Defect resolution rules. Every function takes a row by value and returns
// a new row; the input (and its photo slices) is never modified, so a
// rejected call leaves the caller's state untouched.

// MarkPass toggles a checklist row between pass and unanswered. Any
// embedded defect is cleared either way.
func MarkPass(r ItemResult) ItemResult {
	out := r.Clone()
	out.Defect = nil
	if r.Result == ResultPass {
		out.Result = ResultUnanswered
	} else {
		out.Result = ResultPass
	}
	return out
}

// MarkDefect toggles a checklist row into or out of the defect state.
// An existing defect is cleared back to unanswered. Otherwise a draft
// defect is attached (Minor, Within 7 Days, no photos); the draft cannot be
// committed until SaveDefectDetails supplies at least one photo.
func MarkDefect(r ItemResult) ItemResult {
	out := r.Clone()
	if r.Result == ResultDefect {
		out.Result = ResultUnanswered
		out.Defect = nil
		return out
	}
	out.Result = ResultDefect
	out.Defect = &Defect{
		Severity:  SeverityMinor,
		Timeframe: TimeframeWithin7Days,
		Photos:    []Photo{},
	}
	return out
}

// SaveDefectDetails attaches the technician's defect details to a row.
// Returns EMISSINGPHOTO unless at least one photo is supplied. A quote flag
// already set on the row's defect is preserved.
func SaveDefectDetails(r ItemResult, d DefectDetails) (ItemResult, error) {
	if len(d.Photos) == 0 {
		return r, Errorf(EMISSINGPHOTO, "At least one photo is required to save a defect")
	}
	if err := d.validate(); err != nil {
		return r, err
	}

	out := r.Clone()
	var quote QuoteStatus
	if r.Defect != nil {
		quote = r.Defect.QuoteStatus
	}
	out.Result = ResultDefect
	out.Defect = &Defect{
		DefectType:  d.DefectType,
		Severity:    d.Severity,
		Timeframe:   d.Timeframe,
		Notes:       d.Notes,
		Photos:      clonePhotos(d.Photos),
		QuoteStatus: quote,
	}
	return out, nil
}

// ResolveCarryForward records the re-check of a defect logged in a previous
// inspection cycle. Still unresolved sets the row to unresolved; resolved
// sets it to pass. Both keep the existing unresolved photos plus newPhotos
// as evidence. Returns EINVALID if the row has no previous defect.
//
// Photos beyond the cap or of an unsupported type are reported as
// rejections; the choice itself still applies.
func ResolveCarryForward(r ItemResult, choice UnresolvedStatus, newPhotos []Photo) (ItemResult, []PhotoRejection, error) {
	if !r.HasPreviousDefect {
		return r, nil, Invalid("Item %s has no defect carried forward from a previous inspection", r.Key)
	}
	if !choice.IsValid() {
		return r, nil, Invalid("Unresolved status must be %q or %q", UnresolvedStill, UnresolvedResolved)
	}

	out := r.Clone()
	photos, rejected := AppendPhotos(r.UnresolvedPhotos, newPhotos)
	out.UnresolvedPhotos = photos
	out.UnresolvedStatus = choice
	out.Defect = nil
	if choice == UnresolvedStill {
		out.Result = ResultUnresolved
	} else {
		out.Result = ResultPass
	}
	return out, rejected, nil
}

// ClearResult resets a row to unanswered, dropping any defect and
// carry-forward outcome. Photos and comment are kept.
func ClearResult(r ItemResult) ItemResult {
	out := r.Clone()
	out.Result = ResultUnanswered
	out.Defect = nil
	out.UnresolvedStatus = ""
	return out
}

// Answer is a value for a non-checklist item.
type Answer struct {
	SelectedValue *string
	NumericValue  *float64
	DateValue     *string // YYYY-MM-DD
	TextValue     *string
	Comment       *string
}

// ApplyAnswer records a non-checklist value (and optional comment) on a row.
// The value is checked against the template item's kind.
func ApplyAnswer(r ItemResult, item TemplateItem, a Answer) (ItemResult, error) {
	out := r.Clone()

	switch k := item.Kind.(type) {
	case SingleSelect:
		if a.SelectedValue != nil {
			if *a.SelectedValue != "" && !slices.Contains(k.Options, *a.SelectedValue) {
				return r, Invalid("%q is not an option for %s", *a.SelectedValue, r.Key)
			}
			v := *a.SelectedValue
			out.SelectedValue = &v
		}
	case Numeric:
		if a.NumericValue != nil {
			v := *a.NumericValue
			if k.Min != nil && v < *k.Min {
				return r, Invalid("Value for %s must be at least %g", r.Key, *k.Min)
			}
			if k.Max != nil && v > *k.Max {
				return r, Invalid("Value for %s must be at most %g", r.Key, *k.Max)
			}
			out.NumericValue = &v
		}
	case Date:
		if a.DateValue != nil {
			t, err := parseDate(*a.DateValue)
			if err != nil {
				return r, Invalid("Date for %s must be YYYY-MM-DD", r.Key)
			}
			out.DateValue = t
		}
	case Text:
		if a.TextValue != nil {
			v := *a.TextValue
			out.TextValue = &v
		}
	case Checklist, PhotoRequired:
		if a.SelectedValue != nil || a.NumericValue != nil || a.DateValue != nil || a.TextValue != nil {
			return r, Invalid("Item %s does not take a value", r.Key)
		}
	}

	if a.Comment != nil {
		out.Comment = *a.Comment
	}
	return out, nil
}

// parseDate parses a YYYY-MM-DD value. An empty string clears the date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
