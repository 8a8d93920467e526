// Package limits implements the money/limit policy gating the hosted
// payment path: reference-unit conversion and the lower/upper send limits.
package limits

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
)

// ExchangeRate is a from/to rate pair for converting a local-currency
// amount into reference units.
type ExchangeRate struct {
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
}

// Identity is the 1:1 rate used when no rate source is wired.
func Identity() ExchangeRate {
	one := decimal.NewFromInt(1)
	return ExchangeRate{From: one, To: one}
}

// upperSendLimit is the aggregate ceiling, in reference units, above which
// the hosted path is disabled.
var upperSendLimit = decimal.NewFromInt(1000)

// minimumSendAmounts is the per-currency minimum payable amount. Currencies
// absent from the table default to zero.
var minimumSendAmounts = map[types.Currency]decimal.Decimal{
	types.CurrencyBTC:  decimal.RequireFromString("0.0001"),
	types.CurrencyBCH:  decimal.RequireFromString("0.0001"),
	types.CurrencyETH:  decimal.RequireFromString("0.001"),
	types.CurrencyLTC:  decimal.RequireFromString("0.001"),
	types.CurrencyUSDC: decimal.NewFromInt(1),
	types.CurrencyDAI:  decimal.NewFromInt(1),
}

// ConvertToReferenceUnit converts a local-currency amount into reference
// units: toRate * amount / fromRate. A zero from-rate is a caller error.
func ConvertToReferenceUnit(amount decimal.Decimal, rate ExchangeRate) (decimal.Decimal, error) {
	if rate.From.IsZero() {
		return decimal.Zero, fmt.Errorf("exchange rate from-side must be non-zero")
	}
	return rate.To.Mul(amount).Div(rate.From), nil
}

// BelowLowerSendLimit reports whether the charge is below the minimum
// payable amount on every one of its networks, leaving no viable network at
// all. A single network at or above its minimum keeps the charge viable.
// Unpriced charges are never below the limit.
func BelowLowerSendLimit(charge *types.Charge) bool {
	if charge == nil || !charge.Priced() {
		return false
	}
	for network := range charge.Addresses {
		price, ok := charge.NetworkPrice(network)
		if !ok {
			continue
		}
		min := minimumSendAmounts[network.Currency()]
		if price.Amount.GreaterThanOrEqual(min) {
			return false
		}
	}
	return true
}

// AboveUpperSendLimit reports whether the reference amount exceeds the
// aggregate ceiling.
func AboveUpperSendLimit(reference decimal.Decimal) bool {
	return reference.GreaterThan(upperSendLimit)
}

// ViableNetworks returns the networks whose priced amount meets the
// per-currency minimum. For an unpriced charge every address is viable.
func ViableNetworks(charge *types.Charge) []types.Network {
	if charge == nil {
		return nil
	}
	networks := make([]types.Network, 0, len(charge.Addresses))
	for network := range charge.Addresses {
		if !charge.Priced() {
			networks = append(networks, network)
			continue
		}
		price, ok := charge.NetworkPrice(network)
		if !ok {
			continue
		}
		if price.Amount.GreaterThanOrEqual(minimumSendAmounts[network.Currency()]) {
			networks = append(networks, network)
		}
	}
	return networks
}

// EvaluateHostedPath computes hosted-path eligibility for a charge. The
// below-limit condition is checked before the over-limit one.
func EvaluateHostedPath(charge *types.Charge, reference decimal.Decimal) types.HostedPathState {
	if BelowLowerSendLimit(charge) {
		return Disabled(types.HostedErrChargeBelowLimit)
	}
	if AboveUpperSendLimit(reference) {
		return Disabled(types.HostedErrChargeOverLimit)
	}
	return types.HostedPathState{Enabled: true}
}

// Disabled returns a disabled hosted-path state carrying the catalog error
// for the given key.
func Disabled(key types.HostedPathErrorKey) types.HostedPathState {
	err, ok := CatalogError(key)
	if !ok {
		err = &types.HostedPathError{
			Key:     key,
			Title:   "Unavailable",
			Message: "This payment method is currently unavailable.",
		}
	}
	return types.HostedPathState{Enabled: false, Error: err}
}

var errorCatalog = map[types.HostedPathErrorKey]types.HostedPathError{
	types.HostedErrOAuth: {
		Key:     types.HostedErrOAuth,
		Title:   "Sign-in required",
		Message: "Sign in to your account to pay with your account balance.",
	},
	types.HostedErrYubikey: {
		Key:     types.HostedErrYubikey,
		Title:   "Security key not supported",
		Message: "Accounts protected by a hardware security key cannot pay with an account balance here.",
	},
	types.HostedErrInsufficientFunds: {
		Key:     types.HostedErrInsufficientFunds,
		Title:   "Insufficient funds",
		Message: "Your account balance is too low to cover this charge.",
	},
	types.HostedErrChargeBelowLimit: {
		Key:     types.HostedErrChargeBelowLimit,
		Title:   "Amount too small",
		Message: "This charge is below the minimum amount that can be sent from an account balance.",
	},
	types.HostedErrChargeOverLimit: {
		Key:     types.HostedErrChargeOverLimit,
		Title:   "Amount too large",
		Message: "This charge is above the maximum amount that can be sent from an account balance.",
	},
}

// CatalogError looks up a hosted-path error by key.
func CatalogError(key types.HostedPathErrorKey) (*types.HostedPathError, bool) {
	e, ok := errorCatalog[key]
	if !ok {
		return nil, false
	}
	return &e, true
}
