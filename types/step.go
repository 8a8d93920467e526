package types

// Step is the single user-facing presentation state of a checkout session.
// Exactly one step is active at a time; only the session's named actions
// may change it.
type Step string

const (
	StepNetworkPicker           Step = "networkPicker"
	StepOAuth                   Step = "oauth"
	StepAwaitingPayment         Step = "awaitingPayment"
	StepPendingPayment          Step = "pendingPayment"
	StepWaitingForConfirmations Step = "waitingForConfirmations"
	StepSuccessfulPayment       Step = "successfulPayment"
	StepFailedPayment           Step = "failedPayment"
	StepCanceledPayment         Step = "canceledPayment"
	StepProcessingCancellation  Step = "processingCancellation"
	StepMaintenance             Step = "maintenance"
)

// IsTerminal reports whether the step ends the charge lifecycle. Entering a
// terminal step stops polling.
func (s Step) IsTerminal() bool {
	return s == StepSuccessfulPayment || s == StepFailedPayment || s == StepCanceledPayment
}

// InFlight reports whether the step represents an operation the user must
// not navigate away from; back-navigation is a contract violation here.
func (s Step) InFlight() bool {
	return s == StepPendingPayment || s == StepWaitingForConfirmations || s == StepProcessingCancellation
}

func (s Step) String() string {
	return string(s)
}

// SnapshotSource identifies where a charge snapshot came from when it is fed
// into the lifecycle state machine.
type SnapshotSource string

const (
	SourceStartup SnapshotSource = "startup"
	SourcePoll    SnapshotSource = "poll"
	SourceCancel  SnapshotSource = "cancel"
)

// PollStatus is the advisory state of the charge poller.
type PollStatus string

const (
	PollStatusPolling PollStatus = "polling"
	PollStatusStopped PollStatus = "stopped"

	// PollStatusError is reported once the consecutive-failure streak
	// exceeds the threshold, whether or not polling is still scheduled.
	PollStatusError PollStatus = "error"
)
