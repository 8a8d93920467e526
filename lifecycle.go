package checkout

import (
	"github.com/vitwit/checkout/limits"
	"github.com/vitwit/checkout/track"
	"github.com/vitwit/checkout/types"
)

// The session is the poller's driver: poll cycles feed snapshots through
// ApplySnapshot, maintenance failures through EnterMaintenance, and the
// delay policy reads the current step.

// ApplySnapshot consumes a charge snapshot from startup, a poll cycle, or a
// cancel response, replaces the held charge and dispatches on its derived
// status. In poll context an unchanged snapshot is a no-op, suppressing
// redundant renders and tracking calls.
func (s *Session) ApplySnapshot(charge *types.Charge, source types.SnapshotSource) {
	if charge == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if source == types.SourcePoll && s.charge.Equal(charge) {
		// Even an unchanged snapshot proves the backend is healthy again.
		if s.step == types.StepMaintenance {
			s.transitionLocked(s.resumeStep)
		}
		return
	}
	s.charge = charge
	s.countdown.SetExpiry(charge.ExpiresAt)

	status := charge.Status()

	// Locally recorded hosted payments take precedence over live dispatch
	// for the ambiguous resolved statuses on startup.
	if source == types.SourceStartup && s.oauthFlag {
		switch status {
		case types.StatusResolved:
			s.transitionLocked(types.StepSuccessfulPayment)
			return
		case types.StatusUnresolved:
			s.transitionLocked(types.StepFailedPayment)
			return
		}
	}

	next, ok := stepForStatus(charge)
	if !ok {
		if status != "" && status != types.StatusNew {
			s.log.Warn("unhandled charge status", map[string]any{
				"code":   charge.Code,
				"status": string(status),
			})
		}
		// A healthy poll response while on the maintenance screen means the
		// backend recovered; restore the step we were on.
		if s.step == types.StepMaintenance && source == types.SourcePoll {
			s.transitionLocked(s.resumeStep)
		}
		return
	}

	s.transitionLocked(next)
}

// EnterMaintenance shows the dedicated maintenance screen. Polling keeps
// running so the session self-heals when the backend returns.
func (s *Session) EnterMaintenance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == types.StepMaintenance {
		return
	}
	s.resumeStep = s.step
	s.transitionLocked(types.StepMaintenance)
}

// stepForStatus maps a charge's derived status to the step it demands. The
// second return is false when the status demands no transition (NEW, where
// expiry is never inferred locally, and anything unknown).
func stepForStatus(charge *types.Charge) (types.Step, bool) {
	switch charge.Status() {
	case types.StatusNew:
		return "", false
	case types.StatusPending:
		if !charge.Priced() {
			// Unpriced charges settle on first detection; there is no
			// amount to confirm against.
			return types.StepSuccessfulPayment, true
		}
		payment := charge.LatestPayment()
		if payment == nil {
			return types.StepPendingPayment, true
		}
		block := payment.Block
		switch {
		case block.Confirmations >= block.ConfirmationsRequired:
			return types.StepSuccessfulPayment, true
		case block.Confirmations == 0:
			return types.StepPendingPayment, true
		default:
			return types.StepWaitingForConfirmations, true
		}
	case types.StatusCompleted, types.StatusResolved:
		return types.StepSuccessfulPayment, true
	case types.StatusUnresolved, types.StatusExpired:
		return types.StepFailedPayment, true
	case types.StatusCanceled:
		return types.StepCanceledPayment, true
	default:
		return "", false
	}
}

// transitionLocked performs a step change with its side effects: structured
// log, metrics, tracking events, widget notifications, and stopping the
// poller on steps that end or suspend the lifecycle. No-op when the step is
// unchanged.
func (s *Session) transitionLocked(next types.Step) {
	if s.step == next {
		return
	}
	prev := s.step
	s.step = next

	s.log.Info("checkout step transition", map[string]any{
		"from": prev.String(),
		"to":   next.String(),
	})
	s.metrics.IncCounter("step_transition", map[string]string{"step": next.String()})

	code := ""
	if s.charge != nil {
		code = s.charge.Code
	}

	switch next {
	case types.StepAwaitingPayment:
		s.track.Event(track.EventAwaitingPaymentShown, s.trackPropsLocked())
	case types.StepPendingPayment:
		s.track.Event(track.EventPaymentDetected, s.trackPropsLocked())
		s.notifier.PaymentDetected(code)
	case types.StepWaitingForConfirmations:
		s.track.Event(track.EventPaymentWaitingConfirmations, s.trackPropsLocked())
	case types.StepSuccessfulPayment:
		s.track.Event(track.EventPaymentCompleted, s.trackPropsLocked())
		s.notifier.PaymentCompleted(code)
	case types.StepFailedPayment:
		s.track.Event(track.EventPaymentFailed, s.trackPropsLocked())
		s.notifier.PaymentFailed(code)
	case types.StepCanceledPayment:
		s.track.Event(track.EventPaymentCanceled, s.trackPropsLocked())
		s.notifier.PaymentFailed(code)
	}

	if next.IsTerminal() || next == types.StepProcessingCancellation {
		s.poller.Stop()
	}
}

func (s *Session) trackPropsLocked() map[string]any {
	props := map[string]any{"step": s.step.String()}
	if s.charge != nil {
		props["code"] = s.charge.Code
	}
	if s.picked != "" {
		props["network"] = s.picked.String()
	}
	return props
}

// initialNetworkLocked decides whether the picker is skipped on load: a
// preselected network wins, else a sole viable network with the hosted path
// inapplicable.
func (s *Session) initialNetworkLocked(charge *types.Charge) (types.Network, bool) {
	if s.preselected != "" {
		if _, ok := charge.Addresses[s.preselected]; ok {
			return s.preselected, true
		}
	}
	if !s.hosted.Enabled {
		if viable := limits.ViableNetworks(charge); len(viable) == 1 {
			return viable[0], true
		}
	}
	return "", false
}

// pickerSkippedLocked reports whether back-navigation from awaitingPayment
// would land on a picker that offers no choice, in which case the flow is
// exited instead.
func (s *Session) pickerSkippedLocked() bool {
	if s.charge == nil {
		return true
	}
	return !s.hosted.Enabled && len(limits.ViableNetworks(s.charge)) == 1
}
