package types

import (
	"fmt"
	"net/http"
)

// APIError is a typed backend error decoded from the API's error envelope.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d (%s)", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsMaintenance reports whether the error is the backend's scheduled
// maintenance condition (503 with the distinguished maintenance type).
func (e *APIError) IsMaintenance() bool {
	return e.StatusCode == http.StatusServiceUnavailable && e.Type == "maintenance"
}

// IsClientError reports whether the error is a 4xx-class response.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// InvalidTransitionError signals a caller contract violation: an action was
// invoked from a step that forbids it.
type InvalidTransitionError struct {
	Step   Step
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not allowed from step %s", e.Action, e.Step)
}

// UnsupportedNetworkError signals an attempt to pick a network the charge
// has no receiving address for.
type UnsupportedNetworkError struct {
	Network Network
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("unsupported network: %s", e.Network)
}
