package dataservice

import "sync"

// AuthEvent names an auth-state transition.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
)

// AuthListener receives auth-state notifications. session is nil when no
// session is active.
type AuthListener func(event AuthEvent, session *Session)

// Broadcaster tracks the current session of a client and fans auth-state
// changes out to listeners. Adapters embed it to implement OnAuthStateChange.
type Broadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]AuthListener
	current   *Session
}

// OnAuthStateChange registers listener and immediately delivers the current
// state as INITIAL_SESSION.
func (b *Broadcaster) OnAuthStateChange(listener AuthListener) func() {
	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[int]AuthListener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	current := b.current
	b.mu.Unlock()

	listener(EventInitialSession, current)

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// SignedIn records session as current and notifies listeners.
func (b *Broadcaster) SignedIn(session Session) {
	s := session
	b.emit(EventSignedIn, &s)
}

// SignedOut clears the current session and notifies listeners.
func (b *Broadcaster) SignedOut() {
	b.emit(EventSignedOut, nil)
}

// Current returns the active session, if any.
func (b *Broadcaster) Current() (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Session{}, false
	}
	return *b.current, true
}

func (b *Broadcaster) emit(event AuthEvent, session *Session) {
	b.mu.Lock()
	b.current = session
	listeners := make([]AuthListener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}
