package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// sellerLocks hands out one mutex per seller and forgets it once no caller
// holds or waits for it. The row lock taken in the transaction covers other
// processes; this keeps callers in the same process from queueing on the pool.
type sellerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sellerLock
}

type sellerLock struct {
	mu   sync.Mutex
	refs int
}

func newSellerLocks() *sellerLocks {
	return &sellerLocks{locks: make(map[uuid.UUID]*sellerLock)}
}

// lock blocks until the seller's lock is held and returns its release func.
func (l *sellerLocks) lock(sellerID uuid.UUID) func() {
	l.mu.Lock()
	sl, ok := l.locks[sellerID]
	if !ok {
		sl = &sellerLock{}
		l.locks[sellerID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sellerID)
		}
		l.mu.Unlock()
	}
}

func (l *sellerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
