package mock

import (
	"context"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ liftcheck.InspectionService = (*InspectionService)(nil)

// InspectionService is a mock implementation of liftcheck.InspectionService.
type InspectionService struct {
	FindInspectionByIDFn            func(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error)
	FindActiveInspectionByAssetFn   func(ctx context.Context, assetID string) (*liftcheck.Inspection, error)
	FindLatestCompletedInspectionFn func(ctx context.Context, assetID string) (*liftcheck.Inspection, error)
	FindInspectionsFn               func(ctx context.Context, filter liftcheck.InspectionFilter) ([]*liftcheck.Inspection, int, error)
	CreateInspectionFn              func(ctx context.Context, inspection *liftcheck.Inspection) error
	SaveInspectionFn                func(ctx context.Context, inspection *liftcheck.Inspection) error
}

func (s *InspectionService) FindInspectionByID(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	if s.FindInspectionByIDFn != nil {
		return s.FindInspectionByIDFn(ctx, id)
	}
	return nil, liftcheck.NotFound("Inspection not found")
}

func (s *InspectionService) FindActiveInspectionByAsset(ctx context.Context, assetID string) (*liftcheck.Inspection, error) {
	if s.FindActiveInspectionByAssetFn != nil {
		return s.FindActiveInspectionByAssetFn(ctx, assetID)
	}
	return nil, liftcheck.NotFound("No active inspection for asset")
}

func (s *InspectionService) FindLatestCompletedInspection(ctx context.Context, assetID string) (*liftcheck.Inspection, error) {
	if s.FindLatestCompletedInspectionFn != nil {
		return s.FindLatestCompletedInspectionFn(ctx, assetID)
	}
	return nil, liftcheck.NotFound("No completed inspection for asset")
}

func (s *InspectionService) FindInspections(ctx context.Context, filter liftcheck.InspectionFilter) ([]*liftcheck.Inspection, int, error) {
	if s.FindInspectionsFn != nil {
		return s.FindInspectionsFn(ctx, filter)
	}
	return []*liftcheck.Inspection{}, 0, nil
}

func (s *InspectionService) CreateInspection(ctx context.Context, inspection *liftcheck.Inspection) error {
	if s.CreateInspectionFn != nil {
		return s.CreateInspectionFn(ctx, inspection)
	}
	return nil
}

func (s *InspectionService) SaveInspection(ctx context.Context, inspection *liftcheck.Inspection) error {
	if s.SaveInspectionFn != nil {
		return s.SaveInspectionFn(ctx, inspection)
	}
	return nil
}
