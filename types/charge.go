package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingType says whether a charge carries a fixed price or accepts any amount.
type PricingType string

const (
	PricingFixed PricingType = "fixed_price"
	PricingNone  PricingType = "no_price"
)

// ChargeStatus is one entry kind in a charge's status timeline.
// The backend owns the timeline; this library only reads it.
type ChargeStatus string

const (
	StatusNew        ChargeStatus = "NEW"
	StatusPending    ChargeStatus = "PENDING"
	StatusCompleted  ChargeStatus = "COMPLETED"
	StatusResolved   ChargeStatus = "RESOLVED"
	StatusUnresolved ChargeStatus = "UNRESOLVED"
	StatusExpired    ChargeStatus = "EXPIRED"
	StatusCanceled   ChargeStatus = "CANCELED"
)

// Money is an amount denominated in a single currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Equal compares by numeric value, not representation.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

// TimelineEntry is one status event in a charge's append-only timeline.
type TimelineEntry struct {
	Time   time.Time    `json:"time"`
	Status ChargeStatus `json:"status"`
}

// PaymentBlock carries block-confirmation data for a detected payment.
type PaymentBlock struct {
	Hash                  string `json:"hash,omitempty"`
	Height                int64  `json:"height,omitempty"`
	Confirmations         int    `json:"confirmations"`
	ConfirmationsRequired int    `json:"confirmations_required"`
}

// Payment is one on-chain transaction the backend detected against a charge.
// Read-only from this library's perspective.
type Payment struct {
	TransactionID string       `json:"transaction_id"`
	Network       Network      `json:"network"`
	Value         Money        `json:"value"`
	Block         PaymentBlock `json:"block"`
}

// Charge is the authoritative record of a requested payment, owned by the
// backend. Each poll or cancel response replaces the held snapshot wholesale;
// nothing in this library mutates individual fields.
type Charge struct {
	Code        string             `json:"code" validate:"required"`
	PricingType PricingType        `json:"pricing_type" validate:"required"`
	Addresses   map[Network]string `json:"addresses"`
	Pricing     map[string]Money   `json:"pricing"`
	Timeline    []TimelineEntry    `json:"timeline"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Payments    []Payment          `json:"payments"`
	CancelURL   string             `json:"cancel_url,omitempty"`
	HostedURL   string             `json:"hosted_url,omitempty"`
}

// PricingKeyLocal is the pricing map key holding the charge's price in the
// merchant's local currency.
const PricingKeyLocal = "local"

// Status returns the charge's current status: the last timeline entry,
// or empty if the timeline is empty.
func (c *Charge) Status() ChargeStatus {
	if len(c.Timeline) == 0 {
		return ""
	}
	return c.Timeline[len(c.Timeline)-1].Status
}

// Priced reports whether the charge carries a fixed price.
func (c *Charge) Priced() bool {
	return c.PricingType == PricingFixed
}

// LatestPayment returns the most recently detected payment, or nil.
func (c *Charge) LatestPayment() *Payment {
	if len(c.Payments) == 0 {
		return nil
	}
	return &c.Payments[len(c.Payments)-1]
}

// LocalPrice returns the charge's price in the merchant's local currency.
func (c *Charge) LocalPrice() (Money, bool) {
	m, ok := c.Pricing[PricingKeyLocal]
	return m, ok
}

// NetworkPrice returns the priced amount for one network's currency.
func (c *Charge) NetworkPrice(n Network) (Money, bool) {
	m, ok := c.Pricing[n.String()]
	return m, ok
}

// Equal reports structural equality of two charge snapshots. Amounts compare
// by decimal value and timestamps by instant, so re-decoded snapshots of the
// same backend state compare equal. Used to suppress redundant poll updates.
func (c *Charge) Equal(o *Charge) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Code != o.Code ||
		c.PricingType != o.PricingType ||
		!c.ExpiresAt.Equal(o.ExpiresAt) ||
		c.CancelURL != o.CancelURL ||
		c.HostedURL != o.HostedURL {
		return false
	}
	if len(c.Addresses) != len(o.Addresses) {
		return false
	}
	for n, addr := range c.Addresses {
		if o.Addresses[n] != addr {
			return false
		}
	}
	if len(c.Pricing) != len(o.Pricing) {
		return false
	}
	for k, m := range c.Pricing {
		om, ok := o.Pricing[k]
		if !ok || !m.Equal(om) {
			return false
		}
	}
	if len(c.Timeline) != len(o.Timeline) {
		return false
	}
	for i, e := range c.Timeline {
		oe := o.Timeline[i]
		if e.Status != oe.Status || !e.Time.Equal(oe.Time) {
			return false
		}
	}
	if len(c.Payments) != len(o.Payments) {
		return false
	}
	for i, p := range c.Payments {
		op := o.Payments[i]
		if p.TransactionID != op.TransactionID ||
			p.Network != op.Network ||
			!p.Value.Equal(op.Value) ||
			p.Block != op.Block {
			return false
		}
	}
	return true
}
