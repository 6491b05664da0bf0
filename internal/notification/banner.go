package notification

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a message stays visible.
const DefaultTTL = 5 * time.Second

// Banner keeps the latest message visible until it expires.
type Banner struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Message
}

// NewBanner creates a banner. A non-positive ttl uses DefaultTTL.
func NewBanner(ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Banner{ttl: ttl, now: time.Now}
}

// Send replaces the current message.
func (b *Banner) Send(_ context.Context, message Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if message.Expires.IsZero() {
		message.Expires = b.now().Add(b.ttl)
	}
	b.current = &message
	return nil
}

// Current returns the visible message, if one has not yet expired.
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	if !b.now().Before(b.current.Expires) {
		b.current = nil
		return Message{}, false
	}
	return *b.current, true
}

// String renders the message for a terminal.
func (m Message) String() string {
	if m.Level == LevelError {
		return "[!] " + m.Body
	}
	return "[i] " + m.Body
}
