// Package poller periodically fetches the authoritative charge state from
// the backend and feeds snapshots into the lifecycle state machine, with an
// adaptive interval and error-streak tracking. It also owns the one-second
// tick that refreshes "now" for the expiry countdown.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/types"
)

// errorStreakThreshold is the consecutive-failure count above which the
// poll status turns advisory-error. Polling itself continues.
const errorStreakThreshold = 3

// Fetcher fetches a charge snapshot by code. *api.Client satisfies it.
type Fetcher interface {
	FetchCharge(ctx context.Context, code string) (*types.Charge, error)
}

// Driver is the lifecycle state machine the poller reports into.
type Driver interface {
	// ApplySnapshot consumes a fresh charge snapshot.
	ApplySnapshot(charge *types.Charge, source types.SnapshotSource)
	// EnterMaintenance reacts to the backend's maintenance condition.
	EnterMaintenance()
	// Step returns the current presentation step, used by the delay policy.
	Step() types.Step
}

// Delay is the adaptive poll delay policy, evaluated fresh each cycle.
func Delay(step types.Step, visible bool, errorStreak int) time.Duration {
	switch {
	case step == types.StepNetworkPicker || step == types.StepMaintenance || !visible:
		return 15 * time.Second
	case errorStreak > 10:
		return 10 * time.Second
	case errorStreak > 5:
		return 5 * time.Second
	default:
		return 2 * time.Second
	}
}

// Poller drives the periodic charge fetch. One instance per session; Start
// is an idempotent restart and Stop is safe to call when already stopped.
type Poller struct {
	fetcher Fetcher
	driver  Driver
	onTick  func(now time.Time)
	log     logger.Logger
	metrics metrics.Recorder

	mu          sync.Mutex
	code        string
	ctx         context.Context
	timer       *time.Timer
	tickDone    chan struct{}
	inFlight    bool
	errorStreak int
	// generation invalidates cycles scheduled before the latest Start/Stop,
	// so an in-flight fetch resolving afterwards is discarded rather than
	// reviving polling.
	generation uint64
	stopped    bool
	visible    bool
}

// Option configures a Poller.
type Option func(*Poller)

func WithLogger(l logger.Logger) Option {
	return func(p *Poller) { p.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Poller) { p.metrics = r }
}

// WithTick sets the callback invoked every second while polling is active,
// carrying the current time for countdown display.
func WithTick(fn func(now time.Time)) Option {
	return func(p *Poller) { p.onTick = fn }
}

// New creates a poller reporting into the given driver.
func New(fetcher Fetcher, driver Driver, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		driver:  driver,
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		stopped: true,
		visible: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins (or restarts) polling the given charge code. Any previously
// scheduled cycle or tick is cleared first, one cycle runs immediately, and
// the one-second countdown tick starts.
func (p *Poller) Start(ctx context.Context, code string) {
	p.mu.Lock()
	p.clearTimersLocked()
	p.generation++
	gen := p.generation
	p.code = code
	p.ctx = ctx
	p.stopped = false
	// An outstanding fetch belongs to the old generation now; its result is
	// discarded on arrival, so the new generation polls immediately instead
	// of waiting behind it.
	p.inFlight = false
	p.tickDone = make(chan struct{})
	done := p.tickDone
	p.mu.Unlock()

	go p.runTick(ctx, done)
	go p.cycle(gen)
}

// Stop clears the poll timer and the countdown tick and resets the error
// streak. It does not abort an in-flight fetch; its result is discarded.
// Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearTimersLocked()
	p.generation++
	p.stopped = true
	p.inFlight = false
	p.errorStreak = 0
}

func (p *Poller) clearTimersLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.tickDone != nil {
		close(p.tickDone)
		p.tickDone = nil
	}
}

// SetVisible records whether the host display is visible; hidden displays
// poll at the slow interval.
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
}

// Status reports the advisory poll status. The error status is tied to the
// failure streak alone, not to whether polling is still scheduled.
func (p *Poller) Status() types.PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errorStreak > errorStreakThreshold {
		return types.PollStatusError
	}
	if p.stopped {
		return types.PollStatusStopped
	}
	return types.PollStatusPolling
}

// ErrorStreak returns the current consecutive-failure count.
func (p *Poller) ErrorStreak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errorStreak
}

func (p *Poller) runTick(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if p.onTick != nil {
				p.onTick(now)
			}
		}
	}
}

// cycle runs one poll: fetch, report, reschedule. A second concurrent cycle
// cannot start while one is in flight.
func (p *Poller) cycle(gen uint64) {
	p.mu.Lock()
	if p.stopped || gen != p.generation || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	code := p.code
	ctx := p.ctx
	p.mu.Unlock()

	start := time.Now()
	charge, err := p.fetcher.FetchCharge(ctx, code)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.IncCounter("poll_cycle", map[string]string{"outcome": outcome})
	p.metrics.ObserveLatency("fetch_charge", time.Since(start), map[string]string{"outcome": outcome})

	p.mu.Lock()
	if p.stopped || gen != p.generation {
		// Polling was stopped or restarted while the fetch was in flight;
		// discard the result. The inFlight flag belongs to the newer
		// generation now and must not be cleared here.
		p.mu.Unlock()
		return
	}
	p.inFlight = false
	maintenance := false
	if err != nil {
		var apiErr *types.APIError
		if errors.As(err, &apiErr) && apiErr.IsMaintenance() {
			maintenance = true
		} else {
			p.errorStreak++
			p.log.Warn("charge poll failed", map[string]any{
				"code":   code,
				"streak": p.errorStreak,
				"error":  err.Error(),
			})
		}
	} else {
		p.errorStreak = 0
	}
	p.mu.Unlock()

	if maintenance {
		p.driver.EnterMaintenance()
	} else if err == nil {
		p.driver.ApplySnapshot(charge, types.SourcePoll)
	}

	p.schedule(gen)
}

// schedule arms the next cycle after the current delay, unless polling was
// stopped (possibly by the driver while consuming the snapshot).
func (p *Poller) schedule(gen uint64) {
	step := p.driver.Step()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || gen != p.generation {
		return
	}
	delay := Delay(step, p.visible, p.errorStreak)
	p.timer = time.AfterFunc(delay, func() { p.cycle(gen) })
}
