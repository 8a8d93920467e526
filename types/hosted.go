package types

// HostedPathErrorKey selects an entry from the hosted-path error catalog.
type HostedPathErrorKey string

const (
	HostedErrOAuth             HostedPathErrorKey = "oauth"
	HostedErrYubikey           HostedPathErrorKey = "yubikey"
	HostedErrInsufficientFunds HostedPathErrorKey = "insufficientFunds"
	HostedErrChargeBelowLimit  HostedPathErrorKey = "chargeBelowLimit"
	HostedErrChargeOverLimit   HostedPathErrorKey = "chargeOverLimit"
)

// HostedPathError is a structured, user-presentable reason why the hosted
// payment path is unavailable.
type HostedPathError struct {
	Key     HostedPathErrorKey `json:"key"`
	Title   string             `json:"title"`
	Message string             `json:"message"`
}

// HostedPathState is the eligibility of the hosted (platform-account)
// payment path for the current charge. Set once per charge from the limit
// policy; may later be overridden to disabled by other flow collaborators.
type HostedPathState struct {
	Enabled bool             `json:"enabled"`
	Error   *HostedPathError `json:"error,omitempty"`
}
