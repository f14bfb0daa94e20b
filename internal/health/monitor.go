// Package health polls the backend and tracks the status of its subsystems.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"taskdeck/internal/logging"
	"taskdeck/internal/service"
)

// DefaultInterval is the fixed period between probes.
const DefaultInterval = 30 * time.Second

// UnreachableMessage is raised when the backend cannot be reached.
const UnreachableMessage = "Cannot connect to backend API"

// ErrAlreadyRunning is returned by Start while an interval is live.
var ErrAlreadyRunning = errors.New("health monitor already running")

// Status is the state of one subsystem.
type Status string

const (
	Checking  Status = "checking"
	Connected Status = "connected"
	Error     Status = "error"
)

// State holds one status per backend subsystem.
type State struct {
	API      Status `json:"api" yaml:"api"`
	Database Status `json:"database" yaml:"database"`
	Cache    Status `json:"cache" yaml:"cache"`
}

// Initial is the state before the first probe completes.
func Initial() State {
	return State{API: Checking, Database: Checking, Cache: Checking}
}

// FromReport maps a probe outcome to a fresh State.
func FromReport(report service.HealthReport, err error) State {
	if err != nil {
		return State{API: Error, Database: Error, Cache: Error}
	}
	return State{
		API:      Connected,
		Database: statusOf(report.DatabaseConnected()),
		Cache:    statusOf(report.CacheConnected()),
	}
}

func statusOf(ok bool) Status {
	if ok {
		return Connected
	}
	return Error
}

// Prober performs one health probe.
type Prober interface {
	ProbeHealth(ctx context.Context) (service.HealthReport, error)
}

// Reporter receives transient error messages.
type Reporter interface {
	Raise(message string)
}

// Monitor runs a probe on Start and then on a fixed interval until Stop.
// At most one interval is live at a time.
type Monitor struct {
	prober   Prober
	errs     Reporter
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a monitor. errs may be nil. A non-positive interval uses DefaultInterval.
func New(prober Prober, errs Reporter, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		prober:   prober,
		errs:     errs,
		interval: interval,
		logger:   logging.OrDiscard(logger).With("component", "health"),
		state:    Initial(),
	}
}

// OnChange registers fn to be called after every completed probe cycle.
func (m *Monitor) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns the latest health state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Running reports whether an interval is live.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start probes once, synchronously, then schedules a probe every interval
// until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Debug("monitor started", "interval", m.interval)
	m.Check(ctx)
	go m.loop(ctx, done)
	return nil
}

// Stop cancels the interval and waits for the loop to exit. It is safe to
// call more than once; the monitor may be started again afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Debug("monitor stopped")
}

// Check runs one probe cycle and replaces the state wholesale.
// A result that arrives after ctx is cancelled is discarded.
func (m *Monitor) Check(ctx context.Context) State {
	report, err := m.prober.ProbeHealth(ctx)
	if ctx.Err() != nil {
		m.logger.Debug("discarding probe result", "reason", ctx.Err())
		return m.State()
	}

	next := FromReport(report, err)

	m.mu.Lock()
	m.state = next
	fn := m.onChange
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("health probe failed", "error", err)
		if m.errs != nil {
			m.errs.Raise(UnreachableMessage)
		}
	} else {
		m.logger.Debug("health probe done", "database", next.Database, "cache", next.Cache)
	}

	if fn != nil {
		fn(next)
	}
	return next
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.release(done)
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// release clears the running state when the loop ends because its parent
// context was cancelled. A loop already detached by Stop leaves it alone.
func (m *Monitor) release(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.running = false
	m.cancel = nil
	m.done = nil
	m.logger.Debug("monitor stopped by context")
}
