package testutil

import "sync"

// Recorder captures messages sent to an error surface.
type Recorder struct {
	mu       sync.Mutex
	raised   []string
	persist  []string
	resolved int
}

// Raise records a transient message.
func (r *Recorder) Raise(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, message)
}

// Persist records a sticky message.
func (r *Recorder) Persist(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persist = append(r.persist, message)
}

// Resolve records that sticky messages were resolved.
func (r *Recorder) Resolve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved++
}

// Raised returns the transient messages in order.
func (r *Recorder) Raised() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.raised...)
}

// Persisted returns the sticky messages in order.
func (r *Recorder) Persisted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.persist...)
}

// Resolved returns how many times Resolve was called.
func (r *Recorder) Resolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}
