// Package engine hosts the inspection lifecycle: it loads an inspection,
// applies one transform from the liftcheck package, and saves the result.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
)

// Engine applies technician and admin actions to inspections. Every
// successful mutation is persisted immediately; rejected actions write
// nothing. Store errors are returned unchanged and never retried here.
type Engine struct {
	inspections liftcheck.InspectionService
	templates   liftcheck.TemplateCatalog
	storage     liftcheck.FileStorage
	notifier    liftcheck.Notifier
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time

	locks inspectionLocks
}

// Config holds the dependencies for creating a new Engine.
type Config struct {
	Inspections liftcheck.InspectionService
	Templates   liftcheck.TemplateCatalog
	Storage     liftcheck.FileStorage

	// Optional
	Notifier liftcheck.Notifier
	Metrics  *Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	e := &Engine{
		inspections: cfg.Inspections,
		templates:   cfg.Templates,
		storage:     cfg.Storage,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// log returns a logger carrying the request ID from ctx, if any.
func (e *Engine) log(ctx context.Context) *slog.Logger {
	if id := liftcheck.RequestIDFromContext(ctx); id != "" {
		return e.logger.With(slog.String("request_id", id))
	}
	return e.logger
}

// StartRequest describes a new inspection.
type StartRequest struct {
	TemplateID string
	// TemplateVersion pins a version; zero means the latest.
	TemplateVersion int
	AssetID         string
	TechnicianID    string
	// CarryForward lists rows with a defect from a previous cycle. When nil
	// it is computed from the asset's latest completed inspection; an empty
	// non-nil slice means none.
	CarryForward []liftcheck.ItemKey
}

// Start creates an inspection for the asset, or returns the asset's existing
// in-progress inspection. created reports which happened.
func (e *Engine) Start(ctx context.Context, req StartRequest) (insp *liftcheck.Inspection, created bool, err error) {
	existing, err := e.inspections.FindActiveInspectionByAsset(ctx, req.AssetID)
	if err == nil {
		e.log(ctx).Info("returning active inspection for asset",
			slog.String("inspection_id", existing.ID.String()),
			slog.String("asset_id", req.AssetID))
		return existing, false, nil
	} else if !liftcheck.IsErrorCode(err, liftcheck.ENOTFOUND) {
		return nil, false, err
	}

	var tmpl *liftcheck.Template
	if req.TemplateVersion > 0 {
		tmpl, err = e.templates.FindTemplateVersion(ctx, req.TemplateID, req.TemplateVersion)
	} else {
		tmpl, err = e.templates.FindTemplate(ctx, req.TemplateID)
	}
	if err != nil {
		return nil, false, err
	}

	carry := req.CarryForward
	if carry == nil {
		if carry, err = e.previousDefects(ctx, req.AssetID); err != nil {
			return nil, false, err
		}
	}

	insp, err = liftcheck.NewInspection(tmpl, req.AssetID, req.TechnicianID, carry, e.now())
	if err != nil {
		e.metrics.rejected(err)
		return nil, false, err
	}

	if err := e.inspections.CreateInspection(ctx, insp); err != nil {
		// Lost a race with another start for the same asset.
		if liftcheck.IsErrorCode(err, liftcheck.ECONFLICT) {
			existing, ferr := e.inspections.FindActiveInspectionByAsset(ctx, req.AssetID)
			if ferr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	e.metrics.started()
	e.log(ctx).Info("inspection started",
		slog.String("inspection_id", insp.ID.String()),
		slog.String("asset_id", insp.AssetID),
		slog.String("template_id", insp.TemplateID),
		slog.Int("template_version", insp.TemplateVersion),
		slog.Int("items", len(insp.Items)),
		slog.Int("carry_forward", len(carry)))
	return insp, true, nil
}

// previousDefects lists rows that ended defective or unresolved on the
// asset's latest completed inspection.
func (e *Engine) previousDefects(ctx context.Context, assetID string) ([]liftcheck.ItemKey, error) {
	prev, err := e.inspections.FindLatestCompletedInspection(ctx, assetID)
	if err != nil {
		if liftcheck.IsErrorCode(err, liftcheck.ENOTFOUND) {
			return []liftcheck.ItemKey{}, nil
		}
		return nil, err
	}
	keys := []liftcheck.ItemKey{}
	for _, r := range prev.Items {
		if r.Result == liftcheck.ResultDefect || r.Result == liftcheck.ResultUnresolved {
			keys = append(keys, r.Key)
		}
	}
	return keys, nil
}

// Get retrieves an inspection.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	return e.inspections.FindInspectionByID(ctx, id)
}

// List retrieves inspections matching filter.
func (e *Engine) List(ctx context.Context, filter liftcheck.InspectionFilter) ([]*liftcheck.Inspection, int, error) {
	return e.inspections.FindInspections(ctx, filter)
}

// mutation is one transform applied to a freshly loaded inspection.
type mutation func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, now time.Time) error

// mutate loads the latest state of id under its lock, applies fn and saves.
// Nothing is saved when fn returns an error.
func (e *Engine) mutate(ctx context.Context, id uuid.UUID, action string, fn mutation) (*liftcheck.Inspection, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	insp, err := e.inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.templates.FindTemplateVersion(ctx, insp.TemplateID, insp.TemplateVersion)
	if err != nil {
		return nil, err
	}

	before := insp.CraneStatus
	if err := fn(insp, tmpl, e.now()); err != nil {
		e.metrics.rejected(err)
		e.log(ctx).Debug("inspection action rejected",
			slog.String("inspection_id", id.String()),
			slog.String("action", action),
			slog.String("code", liftcheck.ErrorCode(err)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := e.inspections.SaveInspection(ctx, insp); err != nil {
		return nil, err
	}

	if insp.CraneStatus != before && insp.CraneStatus == liftcheck.StatusUnsafe && !insp.CraneStatusOverridden {
		e.metrics.escalated()
		e.log(ctx).Warn("crane status escalated",
			slog.String("inspection_id", id.String()),
			slog.String("asset_id", insp.AssetID),
			slog.String("crane_status", string(insp.CraneStatus)))
	}
	e.log(ctx).Debug("inspection updated",
		slog.String("inspection_id", id.String()),
		slog.String("action", action))
	return insp, nil
}

// rowUpdate transforms one row of insp. item is the row's template item.
type rowUpdate func(insp *liftcheck.Inspection, r liftcheck.ItemResult, item liftcheck.TemplateItem) (liftcheck.ItemResult, error)

// updateItem applies fn to one row and commits it through UpdateItem. Photos
// the row referenced before and nothing references afterwards are removed
// from storage once the inspection is saved.
func (e *Engine) updateItem(ctx context.Context, id uuid.UUID, action string, key liftcheck.ItemKey, checklistOnly bool, fn rowUpdate) (*liftcheck.Inspection, error) {
	var dropped []liftcheck.Photo
	insp, err := e.mutate(ctx, id, action, func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, now time.Time) error {
		r, err := insp.Item(key)
		if err != nil {
			return err
		}
		item, ok := tmpl.Item(key)
		if !ok {
			return liftcheck.NotFound("Item %s not found in template %s v%d", key, tmpl.ID, tmpl.Version)
		}
		if checklistOnly && !item.IsChecklist() {
			return liftcheck.Invalid("Item %s is not a checklist item", key)
		}
		next, err := fn(insp, r, item)
		if err != nil {
			return err
		}
		if err := insp.UpdateItem(key, next, now); err != nil {
			return err
		}
		dropped = unreferenced(insp, r.AllPhotos())
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.discard(ctx, dropped)
	return insp, nil
}

// MarkPass toggles a checklist item between pass and unanswered.
func (e *Engine) MarkPass(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey) (*liftcheck.Inspection, error) {
	return e.updateItem(ctx, id, "mark_pass", key, true, func(_ *liftcheck.Inspection, r liftcheck.ItemResult, _ liftcheck.TemplateItem) (liftcheck.ItemResult, error) {
		return liftcheck.MarkPass(r), nil
	})
}

// DefectToggle is the outcome of MarkDefect.
type DefectToggle struct {
	Inspection *liftcheck.Inspection
	// Item is the row after the toggle. When Committed is false it holds an
	// uncommitted draft defect to be completed through SaveDefectDetails.
	Item      liftcheck.ItemResult
	Committed bool
}

// MarkDefect toggles a checklist item's defect. Clearing an existing defect
// is saved immediately. Opening a defect only returns a draft: a defect is
// never persisted without a photo.
func (e *Engine) MarkDefect(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey) (*DefectToggle, error) {
	insp, err := e.inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := insp.Item(key)
	if err != nil {
		return nil, err
	}
	if r.Kind != liftcheck.KindChecklist {
		return nil, liftcheck.Invalid("Item %s is not a checklist item", key)
	}

	if r.Result != liftcheck.ResultDefect {
		if !insp.Status.IsEditable() {
			return nil, liftcheck.Invalid("Inspection is completed; reopen it to make changes")
		}
		return &DefectToggle{Inspection: insp, Item: liftcheck.MarkDefect(r)}, nil
	}

	var cleared liftcheck.ItemResult
	insp, err = e.updateItem(ctx, id, "clear_defect", key, true, func(_ *liftcheck.Inspection, r liftcheck.ItemResult, _ liftcheck.TemplateItem) (liftcheck.ItemResult, error) {
		cleared = liftcheck.MarkDefect(r)
		return cleared, nil
	})
	if err != nil {
		return nil, err
	}
	return &DefectToggle{Inspection: insp, Item: cleared, Committed: true}, nil
}

// SaveDefectDetails commits a defect on a checklist item. Returns
// EMISSINGPHOTO unless details carry at least one photo. Photos must be
// references returned by StagePhotos (or already on this defect) for this
// inspection; anything else is EINVALID. Photos the previous defect held
// and the new one does not are removed from storage.
func (e *Engine) SaveDefectDetails(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, details liftcheck.DefectDetails) (*liftcheck.Inspection, error) {
	photos, err := e.verifyPhotos(ctx, id, details.Photos)
	if err != nil {
		e.metrics.rejected(err)
		return nil, err
	}
	details.Photos = photos

	insp, err := e.updateItem(ctx, id, "save_defect", key, true, func(insp *liftcheck.Inspection, r liftcheck.ItemResult, _ liftcheck.TemplateItem) (liftcheck.ItemResult, error) {
		if err := checkUnclaimed(insp, r, photos); err != nil {
			return r, err
		}
		return liftcheck.SaveDefectDetails(r, details)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.defectSaved(details.Severity)
	e.log(ctx).Info("defect saved",
		slog.String("inspection_id", id.String()),
		slog.String("item", key.String()),
		slog.String("severity", string(details.Severity)),
		slog.String("timeframe", string(details.Timeframe)))
	return insp, nil
}

// AnswerItem records a value and/or comment on an item.
func (e *Engine) AnswerItem(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, answer liftcheck.Answer) (*liftcheck.Inspection, error) {
	return e.updateItem(ctx, id, "answer", key, false, func(_ *liftcheck.Inspection, r liftcheck.ItemResult, item liftcheck.TemplateItem) (liftcheck.ItemResult, error) {
		return liftcheck.ApplyAnswer(r, item, answer)
	})
}

// ClearItem resets a checklist item to unanswered.
func (e *Engine) ClearItem(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey) (*liftcheck.Inspection, error) {
	return e.updateItem(ctx, id, "clear", key, true, func(_ *liftcheck.Inspection, r liftcheck.ItemResult, _ liftcheck.TemplateItem) (liftcheck.ItemResult, error) {
		return liftcheck.ClearResult(r), nil
	})
}

// SetCraneStatus records a human choice of operational status.
func (e *Engine) SetCraneStatus(ctx context.Context, id uuid.UUID, status liftcheck.OperationalStatus) (*liftcheck.Inspection, error) {
	insp, err := e.mutate(ctx, id, "set_status", func(insp *liftcheck.Inspection, _ *liftcheck.Template, now time.Time) error {
		return insp.SetCraneStatus(status, now)
	})
	if err != nil {
		return nil, err
	}
	e.log(ctx).Info("crane status set",
		slog.String("inspection_id", id.String()),
		slog.String("crane_status", string(status)))
	return insp, nil
}

// SetQuoteStatus flags an item's defect for quoting.
func (e *Engine) SetQuoteStatus(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, status liftcheck.QuoteStatus) (*liftcheck.Inspection, error) {
	return e.mutate(ctx, id, "set_quote", func(insp *liftcheck.Inspection, _ *liftcheck.Template, now time.Time) error {
		return insp.SetQuoteStatus(key, status, now)
	})
}

// Complete finishes an inspection and notifies the admin.
func (e *Engine) Complete(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	insp, err := e.mutate(ctx, id, "complete", func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, now time.Time) error {
		return insp.Complete(tmpl, now)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.completed(insp.CraneStatus)
	e.log(ctx).Info("inspection completed",
		slog.String("inspection_id", id.String()),
		slog.String("asset_id", insp.AssetID),
		slog.String("crane_status", string(insp.CraneStatus)),
		slog.Bool("overridden", insp.CraneStatusOverridden))

	if e.notifier != nil {
		if err := e.notifier.InspectionCompleted(ctx, insp); err != nil {
			e.log(ctx).Warn("completion notification failed",
				slog.String("inspection_id", id.String()),
				slog.String("error", err.Error()))
		}
	}
	return insp, nil
}

// Reopen moves a completed inspection back to in progress.
func (e *Engine) Reopen(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	insp, err := e.mutate(ctx, id, "reopen", func(insp *liftcheck.Inspection, _ *liftcheck.Template, now time.Time) error {
		return insp.Reopen(now)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.reopened()
	e.log(ctx).Info("inspection reopened", slog.String("inspection_id", id.String()))
	return insp, nil
}

// StatusReport describes where an inspection stands relative to completion.
type StatusReport struct {
	InspectionID          uuid.UUID                   `json:"inspectionId"`
	Status                liftcheck.InspectionStatus  `json:"status"`
	CraneStatus           liftcheck.OperationalStatus `json:"craneStatus,omitempty"`
	CraneStatusOverridden bool                        `json:"craneStatusOverridden"`
	DerivedStatus         liftcheck.OperationalStatus `json:"derivedStatus,omitempty"`
	RequiresDecision      bool                        `json:"requiresDecision"`
	Unanswered            map[string]string           `json:"unanswered"`
	Summary               liftcheck.InspectionSummary `json:"summary"`
}

// Report computes the derived status and the list of blocking items.
func (e *Engine) Report(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	insp, err := e.inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.templates.FindTemplateVersion(ctx, insp.TemplateID, insp.TemplateVersion)
	if err != nil {
		return nil, err
	}

	derived, ok := insp.Derivation().Status()
	report := &StatusReport{
		InspectionID:          insp.ID,
		Status:                insp.Status,
		CraneStatus:           insp.CraneStatus,
		CraneStatusOverridden: insp.CraneStatusOverridden,
		DerivedStatus:         derived,
		RequiresDecision:      !ok && insp.CraneStatus == "",
		Unanswered:            make(map[string]string),
		Summary:               insp.Summary(),
	}
	for key, reason := range insp.Unanswered(tmpl) {
		report.Unanswered[key.String()] = reason
	}
	return report, nil
}

// QuoteCandidates lists Quote Now defects across inspections matching filter.
func (e *Engine) QuoteCandidates(ctx context.Context, filter liftcheck.InspectionFilter) ([]liftcheck.QuoteCandidate, error) {
	inspections, _, err := e.inspections.FindInspections(ctx, filter)
	if err != nil {
		return nil, err
	}
	return liftcheck.ListQuoteCandidates(inspections), nil
}
