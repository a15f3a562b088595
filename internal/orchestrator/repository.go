package orchestrator

import (
	"errors"
	"sync"
)

// Repository defines the concurrency-safe contract for tracking live
// sessions.
type Repository interface {
	// Add registers a new session. Adding an id twice is an error.
	Add(s *Session) error

	// Get returns the session with the given id.
	Get(id string) (*Session, bool)

	// Remove unregisters a session and returns it. Removing an unknown id
	// is a no-op that reports false.
	Remove(id string) (*Session, bool)

	// ActiveSessionCount returns the number of sessions not torn down.
	// Used for metrics.
	ActiveSessionCount() int

	// All returns every registered session.
	All() []*Session
}

var (
	// ErrSessionExists is returned when adding a session whose id is taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for storage; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Add implements Repository.Add.
func (r *InMemoryRepository) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetSession(s.ID()); exists {
		return ErrSessionExists
	}
	r.store.SetSession(s)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.GetSession(id)
}

// Remove implements Repository.Remove.
func (r *InMemoryRepository) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.store.GetSession(id)
	if !ok {
		return nil, false
	}
	r.store.DeleteSession(id)
	return s, true
}

// ActiveSessionCount implements Repository.ActiveSessionCount.
func (r *InMemoryRepository) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListSessionIDs() {
		if s, ok := r.store.GetSession(id); ok && !s.Closed() {
			n++
		}
	}
	return n
}

// All implements Repository.All.
func (r *InMemoryRepository) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.store.ListSessionIDs()
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.store.GetSession(id); ok {
			out = append(out, s)
		}
	}
	return out
}
