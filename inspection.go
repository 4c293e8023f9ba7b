package liftcheck

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Inspection is one technician's pass through a template against one asset.
// Items holds exactly one row per template item; rows are created at start
// and afterwards only mutated, never added or removed.
type Inspection struct {
	ID                    uuid.UUID         `json:"id"`
	TemplateID            string            `json:"templateId"`
	TemplateVersion       int               `json:"templateVersion"`
	AssetID               string            `json:"assetId"`
	TechnicianID          string            `json:"technicianId"`
	Status                InspectionStatus  `json:"status"`
	StartedAt             time.Time         `json:"startedAt"`
	CompletedAt           *time.Time        `json:"completedAt,omitempty"`
	LastEditedAt          *time.Time        `json:"lastEditedAt,omitempty"`
	UpdatedAt             time.Time         `json:"updatedAt"`
	Items                 []ItemResult      `json:"items"`
	CraneStatus           OperationalStatus `json:"craneStatus,omitempty"`
	CraneStatusOverridden bool              `json:"craneStatusOverridden"`
}

// InspectionStatus represents the status of an inspection. There is no
// separate draft state: a saved draft is an in-progress inspection.
type InspectionStatus string

const (
	InspectionStatusInProgress InspectionStatus = "in_progress"
	InspectionStatusCompleted  InspectionStatus = "completed"
)

// IsValid returns true if the status is a recognized value.
func (s InspectionStatus) IsValid() bool {
	return s == InspectionStatusInProgress || s == InspectionStatusCompleted
}

// IsEditable returns true if the inspection items can still be modified.
func (s InspectionStatus) IsEditable() bool {
	return s == InspectionStatusInProgress
}

// CanTransitionTo returns true if this status can transition to the target status.
func (s InspectionStatus) CanTransitionTo(target InspectionStatus) bool {
	switch s {
	case InspectionStatusInProgress:
		return target == InspectionStatusCompleted
	case InspectionStatusCompleted:
		return target == InspectionStatusInProgress // reopen
	default:
		return false
	}
}

// OperationalStatus is the asset-level safety verdict.
type OperationalStatus string

const (
	StatusSafe            OperationalStatus = "Safe to Operate"
	StatusWithLimitations OperationalStatus = "Operate with Limitations"
	StatusUnsafe          OperationalStatus = "Unsafe to Operate"
)

// IsValid returns true if the status is a recognized value.
func (s OperationalStatus) IsValid() bool {
	return s == StatusSafe || s == StatusWithLimitations || s == StatusUnsafe
}

// ItemKey identifies a result row within an inspection.
type ItemKey struct {
	SectionID string `json:"sectionId"`
	ItemID    string `json:"itemId"`
}

// String returns the key as "section/item".
func (k ItemKey) String() string {
	return k.SectionID + "/" + k.ItemID
}

// Result is the answer recorded on a checklist row.
type Result string

const (
	ResultUnanswered Result = ""
	ResultPass       Result = "pass"
	ResultDefect     Result = "defect"
	ResultUnresolved Result = "unresolved"
)

// UnresolvedStatus records the outcome of a carry-forward re-check.
type UnresolvedStatus string

const (
	UnresolvedStill    UnresolvedStatus = "still_unresolved"
	UnresolvedResolved UnresolvedStatus = "resolved"
)

// IsValid returns true if the status is a recognized value.
func (s UnresolvedStatus) IsValid() bool {
	return s == UnresolvedStill || s == UnresolvedResolved
}

// ItemResult is the technician's answer to one template item.
type ItemResult struct {
	Key           ItemKey    `json:"key"`
	Kind          KindName   `json:"kind"`
	Result        Result     `json:"result,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Photos        []Photo    `json:"photos,omitempty"`
	SelectedValue *string    `json:"selectedValue,omitempty"`
	NumericValue  *float64   `json:"numericValue,omitempty"`
	DateValue     *time.Time `json:"dateValue,omitempty"`
	TextValue     *string    `json:"textValue,omitempty"`

	// HasPreviousDefect is supplied at start from the asset's history.
	// It enables the carry-forward re-check on this row.
	HasPreviousDefect bool             `json:"hasPreviousDefect,omitempty"`
	UnresolvedStatus  UnresolvedStatus `json:"unresolvedStatus,omitempty"`
	UnresolvedPhotos  []Photo          `json:"unresolvedPhotos,omitempty"`

	Defect *Defect `json:"defect,omitempty"`
}

// Clone returns a deep copy of the inspection.
func (i *Inspection) Clone() *Inspection {
	c := *i
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		c.CompletedAt = &t
	}
	if i.LastEditedAt != nil {
		t := *i.LastEditedAt
		c.LastEditedAt = &t
	}
	c.Items = make([]ItemResult, len(i.Items))
	for idx, r := range i.Items {
		c.Items[idx] = r.Clone()
	}
	return &c
}

// AllPhotos returns every photo the row references: its own, its defect's
// and its carry-forward evidence.
func (r ItemResult) AllPhotos() []Photo {
	out := slices.Concat(r.Photos, r.UnresolvedPhotos)
	if r.Defect != nil {
		out = append(out, r.Defect.Photos...)
	}
	return out
}

// Clone returns a deep copy of the row.
func (r ItemResult) Clone() ItemResult {
	c := r
	c.Photos = clonePhotos(r.Photos)
	c.UnresolvedPhotos = clonePhotos(r.UnresolvedPhotos)
	c.Defect = r.Defect.clone()
	if r.SelectedValue != nil {
		v := *r.SelectedValue
		c.SelectedValue = &v
	}
	if r.NumericValue != nil {
		v := *r.NumericValue
		c.NumericValue = &v
	}
	if r.DateValue != nil {
		v := *r.DateValue
		c.DateValue = &v
	}
	if r.TextValue != nil {
		v := *r.TextValue
		c.TextValue = &v
	}
	return c
}

// HasValue reports whether a non-checklist row carries a value.
func (r ItemResult) HasValue() bool {
	switch r.Kind {
	case KindSingleSelect:
		return r.SelectedValue != nil && *r.SelectedValue != ""
	case KindNumeric:
		return r.NumericValue != nil
	case KindDate:
		return r.DateValue != nil && !r.DateValue.IsZero()
	case KindText:
		return r.TextValue != nil && *r.TextValue != ""
	case KindPhotoRequired:
		return len(r.Photos) > 0
	default:
		return r.Result != ResultUnanswered
	}
}

// InspectionService is the record store for inspections. The engine calls
// SaveInspection after every mutation and never retries internally.
type InspectionService interface {
	// FindInspectionByID retrieves an inspection by its ID.
	// Returns ENOTFOUND if the inspection does not exist.
	FindInspectionByID(ctx context.Context, id uuid.UUID) (*Inspection, error)

	// FindActiveInspectionByAsset retrieves the in-progress inspection for an asset.
	// Returns ENOTFOUND if the asset has none.
	FindActiveInspectionByAsset(ctx context.Context, assetID string) (*Inspection, error)

	// FindLatestCompletedInspection retrieves the most recently completed
	// inspection for an asset. Returns ENOTFOUND if there is none.
	FindLatestCompletedInspection(ctx context.Context, assetID string) (*Inspection, error)

	// FindInspections retrieves inspections matching the filter criteria.
	// Returns the matching inspections and total count.
	FindInspections(ctx context.Context, filter InspectionFilter) ([]*Inspection, int, error)

	// CreateInspection creates a new inspection.
	// Returns ECONFLICT if the asset already has an in-progress inspection.
	CreateInspection(ctx context.Context, inspection *Inspection) error

	// SaveInspection persists the full state of an existing inspection.
	// Returns ENOTFOUND if the inspection does not exist.
	SaveInspection(ctx context.Context, inspection *Inspection) error
}

// InspectionFilter defines criteria for filtering inspections.
type InspectionFilter struct {
	ID           *uuid.UUID
	AssetID      *string
	TechnicianID *string
	Status       *InspectionStatus

	// Pagination
	Offset int
	Limit  int
}

// InspectionSummary contains aggregated counts for an inspection.
type InspectionSummary struct {
	InspectionID    uuid.UUID         `json:"inspectionId"`
	ItemCount       int               `json:"itemCount"`
	PassCount       int               `json:"passCount"`
	DefectCount     int               `json:"defectCount"`
	UnresolvedCount int               `json:"unresolvedCount"`
	CriticalCount   int               `json:"criticalCount"`
	MajorCount      int               `json:"majorCount"`
	MinorCount      int               `json:"minorCount"`
	QuoteNowCount   int               `json:"quoteNowCount"`
	CraneStatus     OperationalStatus `json:"craneStatus,omitempty"`
}

// Summary computes aggregated counts over the item rows.
func (i *Inspection) Summary() InspectionSummary {
	s := InspectionSummary{
		InspectionID: i.ID,
		ItemCount:    len(i.Items),
		CraneStatus:  i.CraneStatus,
	}
	for _, item := range i.Items {
		switch item.Result {
		case ResultPass:
			s.PassCount++
		case ResultUnresolved:
			s.UnresolvedCount++
		case ResultDefect:
			s.DefectCount++
			if item.Defect == nil {
				continue
			}
			switch item.Defect.Severity {
			case SeverityCritical:
				s.CriticalCount++
			case SeverityMajor:
				s.MajorCount++
			case SeverityMinor:
				s.MinorCount++
			}
			if item.Defect.QuoteStatus == QuoteNow {
				s.QuoteNowCount++
			}
		}
	}
	return s
}
