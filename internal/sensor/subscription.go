package sensor

import (
	"sort"
	"sync"
)

// Registry tracks live listener subscriptions so a session can prove that
// teardown left nothing attached.
type Registry struct {
	mu     sync.Mutex
	next   uint64
	active map[uint64]*Subscription
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[uint64]*Subscription)}
}

// Subscription is one attached listener. Cancel is idempotent.
type Subscription struct {
	reg  *Registry
	id   uint64
	name string
}

// Subscribe registers a named listener and returns its handle.
func (r *Registry) Subscribe(name string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	s := &Subscription{reg: r, id: r.next, name: name}
	r.active[s.id] = s
	return s
}

// Name returns the listener name given at Subscribe.
func (s *Subscription) Name() string { return s.name }

// Cancel detaches the listener.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	delete(s.reg.active, s.id)
}

// Active reports whether the listener is still attached.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	_, ok := s.reg.active[s.id]
	return ok
}

// Active returns the number of attached listeners.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Names returns the sorted names of attached listeners.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.active))
	for _, s := range r.active {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}

// CancelAll detaches every listener.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = make(map[uint64]*Subscription)
}
