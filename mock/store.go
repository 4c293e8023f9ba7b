package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
)

// InspectionStore is an in-memory InspectionService. It stores and returns
// copies, so callers observe exactly what was saved. Individual Fn fields
// can still be replaced to inject failures.
type InspectionStore struct {
	InspectionService

	mu    sync.Mutex
	data  map[uuid.UUID]*liftcheck.Inspection
	saves int
}

// NewInspectionStore returns an empty in-memory store.
func NewInspectionStore() *InspectionStore {
	s := &InspectionStore{data: make(map[uuid.UUID]*liftcheck.Inspection)}
	s.FindInspectionByIDFn = s.findByID
	s.FindActiveInspectionByAssetFn = s.findActive
	s.FindLatestCompletedInspectionFn = s.findLatestCompleted
	s.FindInspectionsFn = s.find
	s.CreateInspectionFn = s.create
	s.SaveInspectionFn = s.save
	return s
}

// Get returns a copy of the stored inspection.
func (s *InspectionStore) Get(id uuid.UUID) (*liftcheck.Inspection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	insp, ok := s.data[id]
	if !ok {
		return nil, false
	}
	return insp.Clone(), true
}

// Saves returns how many times SaveInspection succeeded.
func (s *InspectionStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *InspectionStore) findByID(_ context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	if insp, ok := s.Get(id); ok {
		return insp, nil
	}
	return nil, liftcheck.NotFound("Inspection not found")
}

func (s *InspectionStore) findActive(_ context.Context, assetID string) (*liftcheck.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, insp := range s.data {
		if insp.AssetID == assetID && insp.Status == liftcheck.InspectionStatusInProgress {
			return insp.Clone(), nil
		}
	}
	return nil, liftcheck.NotFound("No active inspection for asset")
}

func (s *InspectionStore) findLatestCompleted(_ context.Context, assetID string) (*liftcheck.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *liftcheck.Inspection
	for _, insp := range s.data {
		if insp.AssetID != assetID || insp.CompletedAt == nil || insp.Status != liftcheck.InspectionStatusCompleted {
			continue
		}
		if latest == nil || insp.CompletedAt.After(*latest.CompletedAt) {
			latest = insp
		}
	}
	if latest == nil {
		return nil, liftcheck.NotFound("No completed inspection for asset")
	}
	return latest.Clone(), nil
}

func (s *InspectionStore) find(_ context.Context, filter liftcheck.InspectionFilter) ([]*liftcheck.Inspection, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*liftcheck.Inspection
	for _, insp := range s.data {
		switch {
		case filter.ID != nil && insp.ID != *filter.ID,
			filter.AssetID != nil && insp.AssetID != *filter.AssetID,
			filter.TechnicianID != nil && insp.TechnicianID != *filter.TechnicianID,
			filter.Status != nil && insp.Status != *filter.Status:
			continue
		}
		out = append(out, insp.Clone())
	}
	slices.SortFunc(out, func(a, b *liftcheck.Inspection) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	total := len(out)
	if filter.Offset > 0 {
		out = out[min(filter.Offset, len(out)):]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (s *InspectionStore) create(_ context.Context, insp *liftcheck.Inspection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data {
		if existing.AssetID == insp.AssetID && existing.Status == liftcheck.InspectionStatusInProgress {
			return liftcheck.Conflict("Asset %s already has an inspection in progress", insp.AssetID)
		}
	}
	s.data[insp.ID] = insp.Clone()
	return nil
}

func (s *InspectionStore) save(_ context.Context, insp *liftcheck.Inspection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[insp.ID]; !ok {
		return liftcheck.NotFound("Inspection not found")
	}
	if insp.Status == liftcheck.InspectionStatusInProgress {
		for id, existing := range s.data {
			if id != insp.ID && existing.AssetID == insp.AssetID && existing.Status == liftcheck.InspectionStatusInProgress {
				return liftcheck.Conflict("Asset %s already has an inspection in progress", insp.AssetID)
			}
		}
	}
	s.data[insp.ID] = insp.Clone()
	s.saves++
	return nil
}
