package sensor

import "sync"

// Gesture is a document-level user input kind.
type Gesture string

const (
	GestureClick      Gesture = "click"
	GestureKeyDown    Gesture = "keydown"
	GestureScroll     Gesture = "scroll"
	GestureTouchStart Gesture = "touchstart"
)

const gateListener = "interaction-gate"

// Valid reports whether g is one of the gestures that unlock audio.
func (g Gesture) Valid() bool {
	switch g {
	case GestureClick, GestureKeyDown, GestureScroll, GestureTouchStart:
		return true
	}
	return false
}

// Gate latches the first user gesture of a session. Browsers only allow
// unmuted playback after one, so the latch permanently unlocks audio.
// The gate listens once: its subscription is cancelled on first firing.
type Gate struct {
	reg      *Registry
	onUnlock func()

	mu       sync.Mutex
	sub      *Subscription
	unlocked bool
}

// NewGate returns an armed gate. onUnlock runs once, outside the gate's lock,
// on the first valid gesture.
func NewGate(reg *Registry, onUnlock func()) *Gate {
	return &Gate{
		reg:      reg,
		onUnlock: onUnlock,
		sub:      reg.Subscribe(gateListener),
	}
}

// Observe feeds one gesture to the gate and reports whether it was the
// unlocking one. Gestures after the first, and unknown kinds, are no-ops.
func (g *Gate) Observe(gesture Gesture) bool {
	if !gesture.Valid() {
		return false
	}

	g.mu.Lock()
	if g.unlocked || g.sub == nil {
		g.mu.Unlock()
		return false
	}
	g.unlocked = true
	g.sub.Cancel()
	g.sub = nil
	g.mu.Unlock()

	if g.onUnlock != nil {
		g.onUnlock()
	}
	return true
}

// Unlocked reports whether a gesture has been seen since the last Reset.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// Listening reports whether the gate is still waiting for a gesture.
func (g *Gate) Listening() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sub != nil
}

// Latch unlocks the gate without a gesture observation and without calling
// onUnlock. Used when an explicit sound-on action already implies consent.
func (g *Gate) Latch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = true
	g.sub.Cancel()
	g.sub = nil
}

// Reset re-arms the gate for a new authenticated session.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = false
	if g.sub == nil {
		g.sub = g.reg.Subscribe(gateListener)
	}
}

// Detach stops listening without changing the latch.
func (g *Gate) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sub.Cancel()
	g.sub = nil
}
