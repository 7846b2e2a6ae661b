package compliance

import "sync"

// userLocks serializes the check-then-record sequence per user. Two
// concurrent purchases for the same user must not both pass a limit check
// that their combined effect would violate, so the committing path holds the
// user's lock across read, evaluate and write.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// acquire blocks until the user's lock is held and returns the release
// function. Entries are reference counted and removed once idle, so the map
// stays bounded by concurrent users rather than all users ever seen.
func (ul *userLocks) acquire(userID string) func() {
	ul.mu.Lock()
	l, ok := ul.locks[userID]
	if !ok {
		l = &userLock{}
		ul.locks[userID] = l
	}
	l.refs++
	ul.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		ul.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(ul.locks, userID)
		}
		ul.mu.Unlock()
	}
}
