// Package banner holds the single error message shown to the user.
//
// The banner is a small state machine:
//
//	None ──Raise──▶ Active(message, expiry) ──ttl elapsed──▶ None
//	  │                 ▲      │
//	  │               Raise  Persist
//	  └──Persist──▶ Sticky(message) ──Resolve──▶ None
//
// Every Raise or Persist supersedes the current message; an Active message's
// timer is restarted, never queued.
package banner

import (
	"sync"
	"time"
)

// DefaultTTL is how long a raised message stays visible.
const DefaultTTL = 5 * time.Second

// Kind is the banner state.
type Kind int

const (
	// None means no message is shown.
	None Kind = iota

	// Active is a transient message that expires.
	Active

	// Sticky is a message without expiry.
	Sticky
)

// String returns the state name.
func (k Kind) String() string {
	switch k {
	case Active:
		return "active"
	case Sticky:
		return "sticky"
	default:
		return "none"
	}
}

// State is a snapshot of the banner.
type State struct {
	Kind    Kind
	Message string
	// Expires is zero unless Kind is Active.
	Expires time.Time
}

// Visible reports whether a message is shown.
func (s State) Visible() bool { return s.Kind != None }

// Banner holds zero or one message. It is safe for concurrent use.
type Banner struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64
	timer    *time.Timer
	stopped  bool
	onChange func(State)
}

// New creates a banner whose raised messages expire after ttl.
// A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Banner{ttl: ttl, now: time.Now}
}

// OnChange registers fn to be called after every state change.
// fn runs without the banner lock held.
func (b *Banner) OnChange(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Raise shows message and (re)starts the expiry timer.
func (b *Banner) Raise(message string) {
	b.set(State{Kind: Active, Message: message}, true)
}

// Persist shows message without expiry.
func (b *Banner) Persist(message string) {
	b.set(State{Kind: Sticky, Message: message}, false)
}

// Resolve clears a sticky message. Transient messages are left to expire.
func (b *Banner) Resolve() {
	b.mu.Lock()
	if b.state.Kind != Sticky {
		b.mu.Unlock()
		return
	}
	b.gen++
	b.state = State{Kind: None}
	fn := b.onChange
	stopped := b.stopped
	b.mu.Unlock()

	if fn != nil && !stopped {
		fn(State{Kind: None})
	}
}

// Clear removes any message and stops its timer.
func (b *Banner) Clear() {
	b.set(State{Kind: None}, false)
}

// Current returns the banner state.
func (b *Banner) Current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stop drops the pending timer. Messages raised after Stop never expire
// and no further change callbacks are made.
func (b *Banner) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Banner) set(next State, expire bool) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if expire {
		next.Expires = b.now().Add(b.ttl)
		if !b.stopped {
			b.timer = time.AfterFunc(b.ttl, func() { b.expire(gen) })
		}
	}
	changed := b.state != next
	b.state = next
	fn := b.onChange
	stopped := b.stopped
	b.mu.Unlock()

	if changed && fn != nil && !stopped {
		fn(next)
	}
}

// expire clears the message armed by generation gen, if it is still current.
func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.state.Kind != Active {
		b.mu.Unlock()
		return
	}
	b.state = State{Kind: None}
	b.timer = nil
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(State{Kind: None})
	}
}
