package mock

import (
	"context"
	"sync"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ liftcheck.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of liftcheck.Notifier.
type Notifier struct {
	InspectionCompletedFn func(ctx context.Context, inspection *liftcheck.Inspection) error

	mu sync.Mutex
	// Completed records the IDs of inspections notified, for assertions.
	Completed []uuid.UUID
}

func (n *Notifier) InspectionCompleted(ctx context.Context, inspection *liftcheck.Inspection) error {
	n.mu.Lock()
	n.Completed = append(n.Completed, inspection.ID)
	n.mu.Unlock()
	if n.InspectionCompletedFn != nil {
		return n.InspectionCompletedFn(ctx, inspection)
	}
	return nil
}
