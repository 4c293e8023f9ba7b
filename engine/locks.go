package engine

import (
	"sync"

	"github.com/google/uuid"
)

// inspectionLocks serializes mutations per inspection. Entries are
// reference counted and dropped once no caller holds or waits on them.
type inspectionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*inspectionLock
}

type inspectionLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the caller owns id and returns the unlock function.
func (l *inspectionLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*inspectionLock)
	}
	lk, ok := l.locks[id]
	if !ok {
		lk = &inspectionLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
