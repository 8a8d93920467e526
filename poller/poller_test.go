package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
)

type fakeFetcher struct {
	fetch func(ctx context.Context, code string) (*types.Charge, error)
}

func (f *fakeFetcher) FetchCharge(ctx context.Context, code string) (*types.Charge, error) {
	return f.fetch(ctx, code)
}

type fakeDriver struct {
	mu          sync.Mutex
	step        types.Step
	snapshots   []*types.Charge
	sources     []types.SnapshotSource
	maintenance int
	applied     chan struct{}
}

func newFakeDriver(step types.Step) *fakeDriver {
	return &fakeDriver{step: step, applied: make(chan struct{}, 16)}
}

func (d *fakeDriver) ApplySnapshot(charge *types.Charge, source types.SnapshotSource) {
	d.mu.Lock()
	d.snapshots = append(d.snapshots, charge)
	d.sources = append(d.sources, source)
	d.mu.Unlock()
	d.applied <- struct{}{}
}

func (d *fakeDriver) EnterMaintenance() {
	d.mu.Lock()
	d.maintenance++
	d.mu.Unlock()
	d.applied <- struct{}{}
}

func (d *fakeDriver) Step() types.Step {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step
}

func (d *fakeDriver) snapshotCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snapshots)
}

func TestDelayPolicy(t *testing.T) {
	cases := []struct {
		name    string
		step    types.Step
		visible bool
		streak  int
		want    time.Duration
	}{
		{"baseline", types.StepAwaitingPayment, true, 0, 2 * time.Second},
		{"streak six", types.StepAwaitingPayment, true, 6, 5 * time.Second},
		{"streak eleven", types.StepAwaitingPayment, true, 11, 10 * time.Second},
		{"picker overrides streak", types.StepNetworkPicker, true, 11, 15 * time.Second},
		{"maintenance", types.StepMaintenance, true, 0, 15 * time.Second},
		{"hidden display", types.StepAwaitingPayment, false, 0, 15 * time.Second},
		{"streak five still baseline", types.StepAwaitingPayment, true, 5, 2 * time.Second},
		{"streak ten still five", types.StepAwaitingPayment, true, 10, 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Delay(tc.step, tc.visible, tc.streak))
		})
	}
}

func TestStatusErrorAboveThreshold(t *testing.T) {
	p := New(&fakeFetcher{}, newFakeDriver(types.StepAwaitingPayment))

	p.mu.Lock()
	p.stopped = false
	p.errorStreak = 4
	p.mu.Unlock()
	assert.Equal(t, types.PollStatusError, p.Status(), "streak above threshold while scheduled")

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	assert.Equal(t, types.PollStatusError, p.Status(), "error status is independent of scheduling")

	p.mu.Lock()
	p.errorStreak = 3
	p.stopped = false
	p.mu.Unlock()
	assert.Equal(t, types.PollStatusPolling, p.Status(), "streak at threshold is not yet an error")
}

func TestCycleFeedsSnapshot(t *testing.T) {
	charge := &types.Charge{Code: "C1", PricingType: types.PricingFixed}
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		return charge, nil
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	p := New(fetcher, driver)

	p.Start(context.Background(), "C1")
	defer p.Stop()

	select {
	case <-driver.applied:
	case <-time.After(time.Second):
		t.Fatal("snapshot was not applied")
	}

	driver.mu.Lock()
	require.Len(t, driver.snapshots, 1)
	assert.Same(t, charge, driver.snapshots[0])
	assert.Equal(t, types.SourcePoll, driver.sources[0])
	driver.mu.Unlock()
	assert.Equal(t, 0, p.ErrorStreak())
}

func TestMaintenanceRoutedToDriver(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		return nil, &types.APIError{StatusCode: 503, Type: "maintenance"}
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	p := New(fetcher, driver)

	p.Start(context.Background(), "C1")
	defer p.Stop()

	select {
	case <-driver.applied:
	case <-time.After(time.Second):
		t.Fatal("maintenance was not reported")
	}

	driver.mu.Lock()
	assert.Equal(t, 1, driver.maintenance)
	assert.Empty(t, driver.snapshots)
	driver.mu.Unlock()
	assert.Equal(t, 0, p.ErrorStreak(), "maintenance does not touch the streak")
}

func TestFailureIncrementsStreak(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		return nil, errors.New("connection refused")
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	log := logger.NewCapture()
	p := New(fetcher, driver, WithLogger(log))

	p.Start(context.Background(), "C1")
	defer p.Stop()

	require.Eventually(t, func() bool { return p.ErrorStreak() == 1 },
		time.Second, 5*time.Millisecond)

	driver.mu.Lock()
	assert.Empty(t, driver.snapshots)
	driver.mu.Unlock()
	assert.True(t, log.Contains("warn", "charge poll failed"))
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		close(inFlight)
		<-release
		return &types.Charge{Code: "C1", PricingType: types.PricingFixed}, nil
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	p := New(fetcher, driver)

	p.Start(context.Background(), "C1")
	<-inFlight
	p.Stop()
	close(release)

	// The resolved fetch must not revive polling or reach the driver.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, driver.snapshotCount())
	assert.Equal(t, types.PollStatusStopped, p.Status())
}

func TestRestartWhileFetchInFlight(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(inFlight)
			<-release
		}
		return &types.Charge{Code: "C1", PricingType: types.PricingFixed}, nil
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	p := New(fetcher, driver)

	p.Start(context.Background(), "C1")
	<-inFlight

	// Restarting must not wait behind the outstanding fetch: the new
	// generation's immediate cycle fetches right away.
	p.Start(context.Background(), "C1")

	select {
	case <-driver.applied:
	case <-time.After(time.Second):
		t.Fatal("polling stalled after restart while a fetch was in flight")
	}
	mu.Lock()
	assert.GreaterOrEqual(t, calls, 2)
	mu.Unlock()
	assert.Equal(t, types.PollStatusPolling, p.Status())

	// The old generation's fetch resolving afterwards is discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, driver.snapshotCount())
	p.Stop()
}

func TestInFlightGuard(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(inFlight)
		<-release
		return &types.Charge{Code: "C1", PricingType: types.PricingFixed}, nil
	}}
	driver := newFakeDriver(types.StepAwaitingPayment)
	p := New(fetcher, driver)

	p.Start(context.Background(), "C1")
	<-inFlight

	// A second cycle attempt while one is in flight must not start a fetch.
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()
	p.cycle(gen)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	close(release)
	select {
	case <-driver.applied:
	case <-time.After(time.Second):
		t.Fatal("snapshot was not applied")
	}
	p.Stop()
	assert.Equal(t, 1, driver.snapshotCount())
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(&fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		return &types.Charge{Code: "C1", PricingType: types.PricingFixed}, nil
	}}, newFakeDriver(types.StepAwaitingPayment))

	p.Stop()
	p.Stop()
	assert.Equal(t, types.PollStatusStopped, p.Status())
}

func TestTickRefreshesCountdown(t *testing.T) {
	ticks := make(chan time.Time, 4)
	fetcher := &fakeFetcher{fetch: func(context.Context, string) (*types.Charge, error) {
		return &types.Charge{Code: "C1", PricingType: types.PricingFixed}, nil
	}}
	p := New(fetcher, newFakeDriver(types.StepAwaitingPayment),
		WithTick(func(now time.Time) {
			select {
			case ticks <- now:
			default:
			}
		}))

	p.Start(context.Background(), "C1")
	defer p.Stop()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not fire")
	}
}
