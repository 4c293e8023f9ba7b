package engine

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
)

// PhotoFile is one uploaded file awaiting intake.
type PhotoFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoTarget selects which photo list of a row receives a batch.
type PhotoTarget string

const (
	// TargetItem is the row's own photo list.
	TargetItem PhotoTarget = "item"
	// TargetDefect is the photo list of the row's committed defect.
	TargetDefect PhotoTarget = "defect"
	// TargetUnresolved is the carry-forward evidence list.
	TargetUnresolved PhotoTarget = "unresolved"
)

// IsValid returns true if the target is known.
func (t PhotoTarget) IsValid() bool {
	switch t {
	case TargetItem, TargetDefect, TargetUnresolved:
		return true
	}
	return false
}

// PhotoBatch reports the outcome of a batch upload. Valid files commit even
// when others in the same batch are rejected.
type PhotoBatch struct {
	Inspection *liftcheck.Inspection      `json:"inspection,omitempty"`
	Accepted   []liftcheck.Photo          `json:"accepted"`
	Rejected   []liftcheck.PhotoRejection `json:"rejected"`
}

// upload checks each file against the per-file rules and stores the valid
// ones. It runs outside the inspection lock. On a storage error every file
// already stored by this call is removed and the error is returned.
func (e *Engine) upload(ctx context.Context, inspectionID uuid.UUID, files []PhotoFile) ([]liftcheck.Photo, []liftcheck.PhotoRejection, error) {
	var (
		stored   []liftcheck.Photo
		rejected []liftcheck.PhotoRejection
	)
	for _, f := range files {
		if err := liftcheck.CheckPhoto(f.Filename, f.ContentType, f.Size); err != nil {
			rejected = append(rejected, liftcheck.PhotoRejection{
				Filename: f.Filename,
				Code:     liftcheck.ErrorCode(err),
				Message:  liftcheck.ErrorMessage(err),
			})
			continue
		}

		photoID := uuid.New()
		key := liftcheck.PhotoStorageKey(inspectionID.String(), photoID.String())
		url, err := e.storage.Upload(ctx, key, f.Body, f.ContentType)
		if err != nil {
			e.discard(ctx, stored)
			return nil, nil, liftcheck.Internal("Failed to store photo", err)
		}
		stored = append(stored, liftcheck.Photo{
			ID:          photoID,
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Size:        f.Size,
			StorageKey:  key,
			URL:         url,
			CreatedAt:   e.now(),
		})
	}
	return stored, rejected, nil
}

// discard removes stored photos that did not make it onto an inspection.
func (e *Engine) discard(ctx context.Context, photos []liftcheck.Photo) {
	for _, p := range photos {
		if err := e.storage.Delete(ctx, p.StorageKey); err != nil {
			e.log(ctx).Warn("failed to delete orphaned photo",
				slog.String("storage_key", p.StorageKey),
				slog.String("error", err.Error()))
		}
	}
}

// verifyPhotos checks that each reference names a file stored under this
// inspection and rebuilds its URL from storage. Client supplied keys and URLs
// are never trusted.
func (e *Engine) verifyPhotos(ctx context.Context, id uuid.UUID, photos []liftcheck.Photo) ([]liftcheck.Photo, error) {
	out := make([]liftcheck.Photo, 0, len(photos))
	seen := make(map[uuid.UUID]bool, len(photos))
	for _, p := range photos {
		if p.ID == uuid.Nil || p.StorageKey != liftcheck.PhotoStorageKey(id.String(), p.ID.String()) {
			return nil, liftcheck.Invalid("Photo %s does not belong to this inspection", p.ID)
		}
		if seen[p.ID] {
			return nil, liftcheck.Invalid("Photo %s is listed more than once", p.ID)
		}
		seen[p.ID] = true

		ok, err := e.storage.Exists(ctx, p.StorageKey)
		if err != nil {
			return nil, liftcheck.Internal("Failed to check photo", err)
		}
		if !ok {
			return nil, liftcheck.Invalid("Photo %s has not been uploaded", p.ID)
		}
		p.URL = e.storage.GetURL(p.StorageKey)
		out = append(out, p)
	}
	return out, nil
}

// checkUnclaimed rejects photos already attached somewhere on insp other than
// the defect of r, which is being replaced.
func checkUnclaimed(insp *liftcheck.Inspection, r liftcheck.ItemResult, photos []liftcheck.Photo) error {
	own := make(map[uuid.UUID]bool)
	if r.Defect != nil {
		for _, p := range r.Defect.Photos {
			own[p.ID] = true
		}
	}
	claimed := referenced(insp)
	for _, p := range photos {
		if claimed[p.ID] && !own[p.ID] {
			return liftcheck.Invalid("Photo %s is already attached to another item", p.ID)
		}
	}
	return nil
}

// referenced collects the IDs of every photo on insp.
func referenced(insp *liftcheck.Inspection) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool)
	for _, r := range insp.Items {
		for _, p := range r.AllPhotos() {
			ids[p.ID] = true
		}
	}
	return ids
}

// unreferenced returns the photos of prev that insp no longer holds.
func unreferenced(insp *liftcheck.Inspection, prev []liftcheck.Photo) []liftcheck.Photo {
	ids := referenced(insp)
	var out []liftcheck.Photo
	for _, p := range prev {
		if !ids[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// notCommitted returns the stored photos missing from accepted.
func notCommitted(stored, accepted []liftcheck.Photo) []liftcheck.Photo {
	var out []liftcheck.Photo
	for _, p := range stored {
		if !slices.ContainsFunc(accepted, func(a liftcheck.Photo) bool { return a.ID == p.ID }) {
			out = append(out, p)
		}
	}
	return out
}

// intake uploads files outside the lock, then applies fn to the latest state
// of the inspection under the lock. fn appends the uploaded photos to a row
// and returns the cap rejections. Uploads that were not committed are
// removed from storage.
func (e *Engine) intake(ctx context.Context, id uuid.UUID, action string, files []PhotoFile,
	fn func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, uploaded []liftcheck.Photo) ([]liftcheck.Photo, []liftcheck.PhotoRejection, error),
) (*PhotoBatch, error) {
	// Reject early for unknown or completed inspections, before storing anything.
	insp, err := e.inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !insp.Status.IsEditable() {
		err := liftcheck.Invalid("Inspection is completed; reopen it to make changes")
		e.metrics.rejected(err)
		return nil, err
	}

	uploaded, rejected, err := e.upload(ctx, id, files)
	if err != nil {
		return nil, err
	}

	var accepted []liftcheck.Photo
	insp, err = e.mutate(ctx, id, action, func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, _ time.Time) error {
		var capRejected []liftcheck.PhotoRejection
		var ferr error
		accepted, capRejected, ferr = fn(insp, tmpl, uploaded)
		if ferr != nil {
			return ferr
		}
		rejected = append(rejected, capRejected...)
		return nil
	})
	if err != nil {
		e.discard(ctx, uploaded)
		return nil, err
	}
	e.discard(ctx, notCommitted(uploaded, accepted))

	e.metrics.photos(len(accepted), rejected)
	e.log(ctx).Info("photos added",
		slog.String("inspection_id", id.String()),
		slog.String("action", action),
		slog.Int("accepted", len(accepted)),
		slog.Int("rejected", len(rejected)))

	return &PhotoBatch{
		Inspection: insp,
		Accepted:   nonNil(accepted),
		Rejected:   nonNil(rejected),
	}, nil
}

// AddPhotos appends a batch of photos to one of a row's photo lists.
// Per-file problems (type, size, the five photo cap) are reported in the
// batch rejections; the rest of the batch still commits.
func (e *Engine) AddPhotos(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, target PhotoTarget, files []PhotoFile) (*PhotoBatch, error) {
	if !target.IsValid() {
		return nil, liftcheck.Invalid("Unknown photo target %q", target)
	}

	return e.intake(ctx, id, "add_photos", files, func(insp *liftcheck.Inspection, _ *liftcheck.Template, uploaded []liftcheck.Photo) ([]liftcheck.Photo, []liftcheck.PhotoRejection, error) {
		r, err := insp.Item(key)
		if err != nil {
			return nil, nil, err
		}

		var existing []liftcheck.Photo
		switch target {
		case TargetItem:
			existing = r.Photos
		case TargetDefect:
			if r.Result != liftcheck.ResultDefect || r.Defect == nil {
				return nil, nil, liftcheck.Invalid("Item %s has no saved defect; save defect details first", key)
			}
			existing = r.Defect.Photos
		case TargetUnresolved:
			if !r.HasPreviousDefect {
				return nil, nil, liftcheck.Invalid("Item %s has no defect carried forward from a previous inspection", key)
			}
			existing = r.UnresolvedPhotos
		}

		merged, rejected := liftcheck.AppendPhotos(existing, uploaded)
		switch target {
		case TargetItem:
			r.Photos = merged
		case TargetDefect:
			r.Defect.Photos = merged
		case TargetUnresolved:
			r.UnresolvedPhotos = merged
		}
		if err := insp.UpdateItem(key, r, e.now()); err != nil {
			return nil, nil, err
		}
		return merged[len(existing):], rejected, nil
	})
}

// ResolveCarryForward records the re-check of a previous-cycle defect along
// with any new evidence photos.
func (e *Engine) ResolveCarryForward(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, choice liftcheck.UnresolvedStatus, files []PhotoFile) (*PhotoBatch, error) {
	if !choice.IsValid() {
		err := liftcheck.Invalid("Unresolved status must be %q or %q", liftcheck.UnresolvedStill, liftcheck.UnresolvedResolved)
		e.metrics.rejected(err)
		return nil, err
	}

	// Resolving drops the row's current defect along with its photos.
	var dropped []liftcheck.Photo
	batch, err := e.intake(ctx, id, "resolve_carry_forward", files, func(insp *liftcheck.Inspection, tmpl *liftcheck.Template, uploaded []liftcheck.Photo) ([]liftcheck.Photo, []liftcheck.PhotoRejection, error) {
		if item, ok := tmpl.Item(key); ok && !item.IsChecklist() {
			return nil, nil, liftcheck.Invalid("Item %s is not a checklist item", key)
		}
		r, err := insp.Item(key)
		if err != nil {
			return nil, nil, err
		}
		before := len(r.UnresolvedPhotos)
		next, rejected, err := liftcheck.ResolveCarryForward(r, choice, uploaded)
		if err != nil {
			return nil, nil, err
		}
		if err := insp.UpdateItem(key, next, e.now()); err != nil {
			return nil, nil, err
		}
		dropped = unreferenced(insp, r.AllPhotos())
		return next.UnresolvedPhotos[before:], rejected, nil
	})
	if err != nil {
		return nil, err
	}
	e.discard(ctx, dropped)
	return batch, nil
}

// StagePhotos stores photos for a defect that has not been saved yet. The
// returned references are passed back with SaveDefectDetails; nothing is
// attached to the inspection here.
func (e *Engine) StagePhotos(ctx context.Context, id uuid.UUID, files []PhotoFile) (*PhotoBatch, error) {
	insp, err := e.inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !insp.Status.IsEditable() {
		err := liftcheck.Invalid("Inspection is completed; reopen it to make changes")
		e.metrics.rejected(err)
		return nil, err
	}

	// Apply the cap before storing so an oversized batch uploads nothing extra.
	candidates := make([]liftcheck.Photo, len(files))
	for i, f := range files {
		candidates[i] = liftcheck.Photo{ID: uuid.New(), Filename: f.Filename, ContentType: f.ContentType, Size: f.Size}
	}
	kept, rejected := liftcheck.AppendPhotos(nil, candidates)

	var pending []PhotoFile
	for i, f := range files {
		if slices.ContainsFunc(kept, func(p liftcheck.Photo) bool { return p.ID == candidates[i].ID }) {
			pending = append(pending, f)
		}
	}

	stored, _, err := e.upload(ctx, id, pending)
	if err != nil {
		return nil, err
	}

	e.metrics.photos(len(stored), rejected)
	e.log(ctx).Info("photos staged",
		slog.String("inspection_id", id.String()),
		slog.Int("accepted", len(stored)),
		slog.Int("rejected", len(rejected)))
	return &PhotoBatch{Accepted: nonNil(stored), Rejected: nonNil(rejected)}, nil
}

// RemovePhoto deletes a photo from whichever list of the row holds it.
// Removing the last photo of a saved defect returns EMISSINGPHOTO.
func (e *Engine) RemovePhoto(ctx context.Context, id uuid.UUID, key liftcheck.ItemKey, photoID uuid.UUID) (*liftcheck.Inspection, error) {
	var removed liftcheck.Photo
	insp, err := e.mutate(ctx, id, "remove_photo", func(insp *liftcheck.Inspection, _ *liftcheck.Template, now time.Time) error {
		r, err := insp.Item(key)
		if err != nil {
			return err
		}
		match := func(p liftcheck.Photo) bool { return p.ID == photoID }
		switch {
		case slices.ContainsFunc(r.Photos, match):
			removed = r.Photos[slices.IndexFunc(r.Photos, match)]
			r.Photos = slices.DeleteFunc(r.Photos, match)
		case r.Defect != nil && slices.ContainsFunc(r.Defect.Photos, match):
			removed = r.Defect.Photos[slices.IndexFunc(r.Defect.Photos, match)]
			r.Defect.Photos = slices.DeleteFunc(r.Defect.Photos, match)
		case slices.ContainsFunc(r.UnresolvedPhotos, match):
			removed = r.UnresolvedPhotos[slices.IndexFunc(r.UnresolvedPhotos, match)]
			r.UnresolvedPhotos = slices.DeleteFunc(r.UnresolvedPhotos, match)
		default:
			return liftcheck.NotFound("Photo %s not found on item %s", photoID, key)
		}
		return insp.UpdateItem(key, r, now)
	})
	if err != nil {
		return nil, err
	}
	e.discard(ctx, []liftcheck.Photo{removed})
	return insp, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
