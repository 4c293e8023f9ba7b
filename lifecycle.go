package liftcheck

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewInspection starts an inspection of assetID against template t. One
// empty row is created per template item. Rows listed in carryForward are
// flagged as having a defect from a previous inspection cycle.
func NewInspection(t *Template, assetID, technicianID string, carryForward []ItemKey, now time.Time) (*Inspection, error) {
	fields := make(map[string]string)
	if t == nil {
		fields["templateId"] = "Template is required"
	}
	if strings.TrimSpace(assetID) == "" {
		fields["assetId"] = "Asset ID is required"
	}
	if strings.TrimSpace(technicianID) == "" {
		fields["technicianId"] = "Technician ID is required"
	}
	if len(fields) > 0 {
		return nil, ErrorWithFields(fields)
	}

	insp := &Inspection{
		ID:              uuid.New(),
		TemplateID:      t.ID,
		TemplateVersion: t.Version,
		AssetID:         assetID,
		TechnicianID:    technicianID,
		Status:          InspectionStatusInProgress,
		StartedAt:       now,
		UpdatedAt:       now,
	}
	for _, s := range t.Sections {
		for _, item := range s.Items {
			key := ItemKey{SectionID: s.ID, ItemID: item.ID}
			insp.Items = append(insp.Items, ItemResult{
				Key:               key,
				Kind:              item.Definition().Kind,
				HasPreviousDefect: item.IsChecklist() && slices.Contains(carryForward, key),
			})
		}
	}
	return insp, nil
}

// Item returns a copy of the row for key.
// Returns ENOTFOUND if the inspection has no such item.
func (i *Inspection) Item(key ItemKey) (ItemResult, error) {
	idx := i.indexOf(key)
	if idx < 0 {
		return ItemResult{}, NotFound("Item %s not found", key)
	}
	return i.Items[idx].Clone(), nil
}

func (i *Inspection) indexOf(key ItemKey) int {
	for idx := range i.Items {
		if i.Items[idx].Key == key {
			return idx
		}
	}
	return -1
}

// Derivation runs DeriveStatus over the current rows.
func (i *Inspection) Derivation() StatusDerivation {
	return DeriveStatus(i.Items)
}

// UpdateItem replaces the row for key with r, then applies the escalation
// rule. The candidate row is validated before anything is written, so a
// rejected update leaves the inspection unchanged. Key, kind and the
// carry-forward flag are properties of the row and cannot be changed.
func (i *Inspection) UpdateItem(key ItemKey, r ItemResult, now time.Time) error {
	if !i.Status.IsEditable() {
		return Invalid("Inspection is completed; reopen it to make changes")
	}
	idx := i.indexOf(key)
	if idx < 0 {
		return NotFound("Item %s not found", key)
	}

	current := i.Items[idx]
	r = r.Clone()
	r.Key = current.Key
	r.Kind = current.Kind
	r.HasPreviousDefect = current.HasPreviousDefect

	if err := validateRow(r); err != nil {
		return err
	}

	i.Items[idx] = r
	i.UpdatedAt = now
	i.escalate()
	return nil
}

// escalate applies the derived status only when it is Unsafe and the status
// has not been set by a human. It never downgrades an existing status.
func (i *Inspection) escalate() bool {
	if i.CraneStatusOverridden {
		return false
	}
	if s, ok := i.Derivation().Status(); ok && s == StatusUnsafe && i.CraneStatus != StatusUnsafe {
		i.CraneStatus = StatusUnsafe
		return true
	}
	return false
}

// validateRow checks that a row may be committed.
func validateRow(r ItemResult) error {
	switch r.Result {
	case ResultUnanswered, ResultPass:
		if r.Defect != nil {
			return Invalid("Item %s carries a defect but is not marked as defective", r.Key)
		}
	case ResultDefect:
		if r.Defect == nil || len(r.Defect.Photos) == 0 {
			return Errorf(EMISSINGPHOTO, "Defect on %s requires at least one photo", r.Key)
		}
		if err := validatePhotoList(r.Defect.Photos); err != nil {
			return err
		}
	case ResultUnresolved:
		if !r.HasPreviousDefect {
			return Invalid("Item %s has no defect carried forward from a previous inspection", r.Key)
		}
		if r.Defect != nil {
			return Invalid("Unresolved item %s cannot carry a new defect", r.Key)
		}
	default:
		return Invalid("Unknown result %q", r.Result)
	}

	if r.Result != ResultUnanswered && r.Kind != KindChecklist {
		return Invalid("Item %s is not a checklist item", r.Key)
	}
	if r.UnresolvedStatus != "" && !r.UnresolvedStatus.IsValid() {
		return Invalid("Unknown unresolved status %q", r.UnresolvedStatus)
	}
	if err := validatePhotoList(r.Photos); err != nil {
		return err
	}
	return validatePhotoList(r.UnresolvedPhotos)
}

// SetCraneStatus records a human choice of operational status. It is always
// legal and marks the status as overridden, so later item updates never
// recompute it.
func (i *Inspection) SetCraneStatus(status OperationalStatus, now time.Time) error {
	if !status.IsValid() {
		return Invalid("Operational status must be one of %q, %q or %q", StatusSafe, StatusWithLimitations, StatusUnsafe)
	}
	i.CraneStatus = status
	i.CraneStatusOverridden = true
	i.UpdatedAt = now
	if i.Status == InspectionStatusCompleted {
		i.LastEditedAt = &now
	}
	return nil
}

// Unanswered lists every row that blocks completion, with the reason.
func (i *Inspection) Unanswered(t *Template) map[ItemKey]string {
	missing := make(map[ItemKey]string)
	for _, r := range i.Items {
		item, ok := t.Item(r.Key)
		if !ok {
			// Row without a template item: only the result can be judged.
			if r.Kind == KindChecklist && r.Result == ResultUnanswered {
				missing[r.Key] = "not answered"
			}
			continue
		}
		if reason := unansweredReason(item, r); reason != "" {
			missing[r.Key] = reason
		}
	}
	return missing
}

func unansweredReason(item TemplateItem, r ItemResult) string {
	switch k := item.Kind.(type) {
	case Checklist:
		if r.Result == ResultUnanswered {
			return "not answered"
		}
	case PhotoRequired:
		if len(r.Photos) < k.MinPhotos {
			return fmt.Sprintf("at least %d photo(s) required", k.MinPhotos)
		}
	case SingleSelect:
		if !r.HasValue() {
			if item.Required {
				return "selection required"
			}
			return ""
		}
		if k.ConditionalCommentOn != "" && *r.SelectedValue == k.ConditionalCommentOn && strings.TrimSpace(r.Comment) == "" {
			return fmt.Sprintf("comment required when %q is selected", k.ConditionalCommentOn)
		}
	default:
		if item.Required && !r.HasValue() {
			return "value required"
		}
	}
	return ""
}

// Complete finishes the inspection. Returns EINCOMPLETE if any row is
// unanswered, or if defects exist and no operational status has been
// chosen: an ambiguous status is never resolved silently, the caller must
// SetCraneStatus first. The inspection is unchanged on rejection.
func (i *Inspection) Complete(t *Template, now time.Time) error {
	if !i.Status.CanTransitionTo(InspectionStatusCompleted) {
		return Invalid("Invalid status transition from %s to %s", i.Status, InspectionStatusCompleted)
	}

	if missing := i.Unanswered(t); len(missing) > 0 {
		fields := make(map[string]string, len(missing))
		for key, reason := range missing {
			fields[key.String()] = reason
		}
		return Incomplete(fmt.Sprintf("%d of %d items are not answered", len(missing), len(i.Items)), fields)
	}

	status := i.CraneStatus
	if status == "" {
		derived, ok := i.Derivation().Status()
		if !ok {
			return Incomplete("Defects were recorded: choose an operational status before completing", map[string]string{
				"craneStatus": "required",
			})
		}
		status = derived
	}

	i.CraneStatus = status
	i.Status = InspectionStatusCompleted
	i.CompletedAt = &now
	i.UpdatedAt = now
	return nil
}

// Reopen moves a completed inspection back to in progress and stamps
// LastEditedAt. The operational status and its override flag are kept.
func (i *Inspection) Reopen(now time.Time) error {
	if !i.Status.CanTransitionTo(InspectionStatusInProgress) {
		return Invalid("Invalid status transition from %s to %s", i.Status, InspectionStatusInProgress)
	}
	i.Status = InspectionStatusInProgress
	i.LastEditedAt = &now
	i.UpdatedAt = now
	return nil
}

// SetQuoteStatus flags the defect on key for the quoting workflow.
func (i *Inspection) SetQuoteStatus(key ItemKey, status QuoteStatus, now time.Time) error {
	if !status.IsValid() {
		return Invalid("Quote status must be %q or %q", QuoteNow, QuoteLater)
	}
	idx := i.indexOf(key)
	if idx < 0 {
		return NotFound("Item %s not found", key)
	}
	if i.Items[idx].Defect == nil {
		return Invalid("Item %s has no defect to quote", key)
	}
	i.Items[idx].Defect.QuoteStatus = status
	i.UpdatedAt = now
	return nil
}
