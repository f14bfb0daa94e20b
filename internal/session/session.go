// Package session ties the task store, health monitor and error banner to one
// remote and exposes their combined state as a View.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"taskdeck/internal/banner"
	"taskdeck/internal/config"
	"taskdeck/internal/health"
	"taskdeck/internal/logging"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
)

// ErrActive is returned by Activate on a session that was already activated.
var ErrActive = errors.New("session already activated")

// Options tune a session.
type Options struct {
	HealthInterval time.Duration
	ErrorTTL       time.Duration
	Policy         store.Policy
}

// DefaultOptions returns the standard intervals and apply policies.
func DefaultOptions() Options {
	return Options{
		HealthInterval: health.DefaultInterval,
		ErrorTTL:       banner.DefaultTTL,
		Policy:         store.DefaultPolicy(),
	}
}

// OptionsFrom builds options from resolved settings.
func OptionsFrom(s config.Settings) Options {
	opts := DefaultOptions()
	if s.HealthInterval > 0 {
		opts.HealthInterval = s.HealthInterval
	}
	if s.ErrorTTL > 0 {
		opts.ErrorTTL = s.ErrorTTL
	}
	if s.TogglePolicy != "" {
		opts.Policy.Toggle = applyPolicy(s.TogglePolicy)
	}
	if s.DeletePolicy != "" {
		opts.Policy.Delete = applyPolicy(s.DeletePolicy)
	}
	return opts
}

func applyPolicy(name string) store.ApplyPolicy {
	if name == config.PolicyBeforeConfirm {
		return store.ApplyBeforeConfirm
	}
	return store.ApplyAfterConfirm
}

// View is everything the presentation layer renders.
type View struct {
	Tasks   []service.Task `json:"tasks" yaml:"tasks"`
	Loading bool           `json:"loading" yaml:"loading"`
	Health  health.State   `json:"health" yaml:"health"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Session owns one store, one monitor and one banner.
type Session struct {
	Store  *store.Store
	Health *health.Monitor
	Banner *banner.Banner

	logger  *slog.Logger
	updates chan struct{}

	mu        sync.Mutex
	activated bool
	closed    bool
}

// New creates an inactive session over remote.
func New(remote service.Remote, opts Options, logger *slog.Logger) *Session {
	logger = logging.OrDiscard(logger)
	b := banner.New(opts.ErrorTTL)
	s := &Session{
		Banner:  b,
		Store:   store.New(remote, b, opts.Policy, logger),
		Health:  health.New(remote, b, opts.HealthInterval, logger),
		logger:  logger.With("component", "session"),
		updates: make(chan struct{}, 1),
	}

	b.OnChange(func(banner.State) { s.notify() })
	s.Store.OnChange(s.notify)
	s.Health.OnChange(func(health.State) { s.notify() })
	return s
}

// Activate loads the tasks and runs the first health probe concurrently,
// then leaves the health interval running until Deactivate or ctx is done.
// The load error, if any, is returned; it is also shown on the banner.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.activated || s.closed {
		s.mu.Unlock()
		return ErrActive
	}
	s.activated = true
	s.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		return s.Store.Load(ctx)
	})
	g.Go(func() error {
		if err := s.Health.Start(ctx); err != nil {
			s.logger.Warn("health monitor not started", "error", err)
			return nil
		}
		// Deactivate may have run while the first probe was in flight.
		if s.isClosed() {
			s.Health.Stop()
		}
		return nil
	})
	return g.Wait()
}

// Deactivate stops the health interval, cancels in-flight calls and drops
// the banner timer. It is safe to call more than once.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.Health.Stop()
	s.Store.Close()
	s.Banner.Stop()
	s.logger.Debug("session deactivated")
}

// View returns a snapshot of the combined state.
func (s *Session) View() View {
	snap := s.Store.Snapshot()
	v := View{
		Tasks:   snap.Tasks,
		Loading: snap.Loading,
		Health:  s.Health.State(),
	}
	if state := s.Banner.Current(); state.Visible() {
		v.Error = state.Message
	}
	return v
}

// Updates delivers a signal after any state change. Signals are coalesced.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
