// Package checkout tracks the lifecycle of a cryptocurrency payment charge
// from creation through settlement, cancellation, or expiry. It is the
// client-side counterpart of a payment backend: it polls charge status,
// reconciles state transitions, orchestrates an optional direct-wallet
// payment flow, and drives the presentation step a UI layer renders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitwit/checkout/countdown"
	"github.com/vitwit/checkout/limits"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/poller"
	"github.com/vitwit/checkout/storage"
	"github.com/vitwit/checkout/track"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/wallet"
)

// ErrNoCharge is returned by actions that require a loaded charge.
var ErrNoCharge = errors.New("checkout: no charge loaded")

// ErrHostedPathDisabled is returned when the hosted payment path is started
// while disabled by the limit policy or a downstream override.
var ErrHostedPathDisabled = errors.New("checkout: hosted payment path is disabled")

// API is the backend contract the session consumes.
type API interface {
	FetchCharge(ctx context.Context, code string) (*types.Charge, error)
	CancelCharge(ctx context.Context, code string) (*types.Charge, error)
}

// WidgetNotifier is the host-layer channel informing an embedded
// payment-button widget of specific transitions. Fire-and-forget.
type WidgetNotifier interface {
	PaymentDetected(code string)
	PaymentCompleted(code string)
	PaymentFailed(code string)
}

// NoopWidgetNotifier discards all notifications.
type NoopWidgetNotifier struct{}

func (NoopWidgetNotifier) PaymentDetected(string)  {}
func (NoopWidgetNotifier) PaymentCompleted(string) {}
func (NoopWidgetNotifier) PaymentFailed(string)    {}

// Session owns one checkout's state: the held charge snapshot, the current
// presentation step, the picked network, and the hosted-path eligibility.
// Construct one per active checkout and inject it into collaborators; there
// is no ambient global. All state is mutated by the session alone; external
// components only read derived values or invoke the documented actions.
type Session struct {
	api            API
	poller         *poller.Poller
	countdown      *countdown.Tracker
	wallet         *wallet.Mediator
	walletProvider wallet.Provider
	defaultChainID int64
	store          storage.Store
	track          track.Sink
	notifier       WidgetNotifier
	returnHome     func()
	rate           limits.ExchangeRate
	preselected    types.Network
	log            logger.Logger
	metrics        metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the fields below; see lifecycle.go for the transition logic
	mu         sync.Mutex
	charge     *types.Charge
	step       types.Step
	picked     types.Network
	hosted     types.HostedPathState
	resumeStep types.Step
	prevStep   types.Step
	oauthFlag  bool
	closed     bool
}

// New creates a session over the given backend client.
func New(api API, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:       api,
		countdown: countdown.New(),
		track:     track.NoopSink{},
		notifier:  NoopWidgetNotifier{},
		rate:      limits.Identity(),
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wallet = wallet.New(s.walletProvider,
		wallet.WithLogger(s.log),
		wallet.WithMetrics(s.metrics),
		wallet.WithDefaultChainID(s.defaultChainID),
	)
	s.poller = poller.New(api, s,
		poller.WithLogger(s.log),
		poller.WithMetrics(s.metrics),
		poller.WithTick(s.countdown.Advance),
	)
	return s
}

// Load fetches the charge and initializes the session for it: hosted-path
// eligibility from the limit policy, the initial step, the local-flag bias
// for terminal screens, and polling.
func (s *Session) Load(ctx context.Context, code string) error {
	charge, err := s.api.FetchCharge(ctx, code)
	if err != nil {
		return fmt.Errorf("load charge %s: %w", code, err)
	}

	s.mu.Lock()
	s.charge = charge
	s.picked = ""
	s.oauthFlag = false
	s.resumeStep = ""
	s.prevStep = ""
	s.step = ""

	if s.store != nil {
		flags, ok, ferr := s.store.Flags(code)
		if ferr != nil {
			s.log.Warn("read charge flags failed", map[string]any{"code": code, "error": ferr.Error()})
		} else if ok {
			s.oauthFlag = flags.IsOAuthPayment
		}
	}

	s.hosted = limits.EvaluateHostedPath(charge, s.referenceAmount(charge))

	if n, ok := s.initialNetworkLocked(charge); ok {
		s.picked = n
		s.transitionLocked(types.StepAwaitingPayment)
	} else {
		s.transitionLocked(types.StepNetworkPicker)
	}
	s.mu.Unlock()

	s.wallet.Reset()
	s.ApplySnapshot(charge, types.SourceStartup)

	s.mu.Lock()
	start := !s.step.IsTerminal() && s.step != types.StepProcessingCancellation
	s.mu.Unlock()
	if start {
		s.poller.Start(s.ctx, code)
	}
	return nil
}

// referenceAmount converts the charge's local-currency price into reference
// units for the upper-limit comparison.
func (s *Session) referenceAmount(charge *types.Charge) decimal.Decimal {
	local, ok := charge.LocalPrice()
	if !ok {
		return decimal.Zero
	}
	ref, err := limits.ConvertToReferenceUnit(local.Amount, s.rate)
	if err != nil {
		s.log.Warn("reference conversion failed", map[string]any{"code": charge.Code, "error": err.Error()})
		return decimal.Zero
	}
	return ref
}

// PickNetwork selects the network the user will pay with, moves to
// awaitingPayment and (re)starts polling.
func (s *Session) PickNetwork(n types.Network) error {
	s.mu.Lock()
	if s.charge == nil {
		s.mu.Unlock()
		return ErrNoCharge
	}
	if _, ok := s.charge.Addresses[n]; !ok {
		s.mu.Unlock()
		return &types.UnsupportedNetworkError{Network: n}
	}
	s.picked = n
	code := s.charge.Code
	s.track.Event(track.EventCurrencyPicked, map[string]any{
		"code":     code,
		"network":  n.String(),
		"currency": string(n.Currency()),
	})
	s.transitionLocked(types.StepAwaitingPayment)
	s.mu.Unlock()

	s.poller.Start(s.ctx, code)
	return nil
}

// GoBack navigates away from the current step. From an in-flight step it is
// a contract violation and returns types.InvalidTransitionError.
func (s *Session) GoBack() error {
	s.mu.Lock()
	var exit bool
	switch s.step {
	case types.StepAwaitingPayment:
		if s.pickerSkippedLocked() {
			exit = true
		} else {
			s.picked = ""
			s.transitionLocked(types.StepNetworkPicker)
		}
	case types.StepOAuth:
		prev := s.prevStep
		if prev == "" {
			prev = types.StepNetworkPicker
		}
		s.transitionLocked(prev)
	case types.StepNetworkPicker, types.StepSuccessfulPayment,
		types.StepFailedPayment, types.StepCanceledPayment, types.StepMaintenance:
		exit = true
	default:
		step := s.step
		s.mu.Unlock()
		return &types.InvalidTransitionError{Step: step, Action: "goBack"}
	}
	s.mu.Unlock()

	if exit {
		s.exit()
	}
	return nil
}

// exit leaves the checkout flow entirely.
func (s *Session) exit() {
	s.poller.Stop()
	if s.returnHome != nil {
		s.returnHome()
	}
}

// Cancel requests cancellation of the held charge. The step moves to
// processingCancellation and polling stops before the backend responds.
// Backend errors are swallowed: a 4xx means the charge was no longer
// cancelable and a 5xx has no user-actionable recovery; the held charge
// self-corrects on the next load or poll. The charge's cancellation
// redirect URL is returned regardless of outcome.
func (s *Session) Cancel(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.charge == nil {
		s.mu.Unlock()
		return "", ErrNoCharge
	}
	code := s.charge.Code
	s.transitionLocked(types.StepProcessingCancellation)
	s.mu.Unlock()

	updated, err := s.api.CancelCharge(ctx, code)
	if err != nil {
		s.log.Debug("cancel charge failed", map[string]any{"code": code, "error": err.Error()})
	} else {
		s.ApplySnapshot(updated, types.SourceCancel)
	}

	s.mu.Lock()
	url := ""
	if s.charge != nil {
		url = s.charge.CancelURL
	}
	s.mu.Unlock()
	return url, nil
}

// PayWithWallet starts the direct-wallet payment protocol for the picked
// network. It blocks through the protocol's suspension points; run it from
// the host's event handler goroutine. The outcome is read via WalletStatus.
func (s *Session) PayWithWallet(ctx context.Context) {
	s.mu.Lock()
	charge := s.charge
	picked := s.picked
	s.mu.Unlock()
	if charge == nil || picked == "" {
		return
	}
	s.wallet.Pay(ctx, charge, picked)
}

// CancelWalletPayment dismisses the wallet payment display. It cannot abort
// an already-broadcast transaction.
func (s *Session) CancelWalletPayment() {
	s.wallet.Cancel()
}

// BeginHostedPayment enters the hosted (platform-account) payment flow.
func (s *Session) BeginHostedPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hosted.Enabled {
		return ErrHostedPathDisabled
	}
	if s.step != types.StepNetworkPicker && s.step != types.StepAwaitingPayment {
		return &types.InvalidTransitionError{Step: s.step, Action: "beginHostedPayment"}
	}
	s.prevStep = s.step
	s.transitionLocked(types.StepOAuth)
	return nil
}

// CompleteHostedPayment records that the user paid through the hosted path,
// biasing which terminal screen the next load of this charge shows.
func (s *Session) CompleteHostedPayment() error {
	s.mu.Lock()
	if s.charge == nil {
		s.mu.Unlock()
		return ErrNoCharge
	}
	code := s.charge.Code
	s.oauthFlag = true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.PutFlags(code, storage.Flags{IsOAuthPayment: true}); err != nil {
			return fmt.Errorf("persist oauth flag: %w", err)
		}
	}
	return nil
}

// DisableHostedPath overrides hosted-path eligibility to disabled with the
// catalog error for the given condition.
func (s *Session) DisableHostedPath(key types.HostedPathErrorKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosted = limits.Disabled(key)
}

// SetDisplayVisible tells the poller whether the host display is visible;
// hidden displays poll at the slow interval.
func (s *Session) SetDisplayVisible(visible bool) {
	s.poller.SetVisible(visible)
}

// Step returns the current presentation step.
func (s *Session) Step() types.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Charge returns the held charge snapshot. Callers must treat it as
// read-only; each poll replaces it wholesale.
func (s *Session) Charge() *types.Charge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charge
}

// PickedNetwork returns the currently picked network, if any.
func (s *Session) PickedNetwork() (types.Network, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.picked, s.picked != ""
}

// HostedPath returns the hosted payment path's eligibility.
func (s *Session) HostedPath() types.HostedPathState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hosted
}

// WalletStatus returns the direct-wallet payment status.
func (s *Session) WalletStatus() types.WalletStatus {
	return s.wallet.Status()
}

// PollStatus returns the poller's advisory status.
func (s *Session) PollStatus() types.PollStatus {
	return s.poller.Status()
}

// IsOAuthPayment reports the locally persisted hosted-payment flag for the
// loaded charge, used to flavor otherwise-ambiguous terminal screens.
func (s *Session) IsOAuthPayment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oauthFlag
}

// TimeRemaining returns the time left until charge expiry, clamped at zero.
func (s *Session) TimeRemaining() time.Duration {
	return s.countdown.Remaining()
}

// Close tears the session down: polling stops and outstanding backend calls
// are aborted through the base context. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.poller.Stop()
	s.cancel()
}
