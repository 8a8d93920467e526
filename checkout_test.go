package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitwit/checkout/types"
)

// fakeAPI is a programmable backend for session tests.
type fakeAPI struct {
	mu           sync.Mutex
	charge       *types.Charge
	fetchErr     error
	cancelResult *types.Charge
	cancelErr    error
	cancelCalls  int
}

func (f *fakeAPI) FetchCharge(ctx context.Context, code string) (*types.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.charge, nil
}

func (f *fakeAPI) CancelCharge(ctx context.Context, code string) (*types.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelResult, nil
}

// recordingSink records tracked event names.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Event(name string, props map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingSink) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

// recordingNotifier records widget notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	detected  int
	completed int
	failed    int
}

func (r *recordingNotifier) PaymentDetected(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detected++
}

func (r *recordingNotifier) PaymentCompleted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingNotifier) PaymentFailed(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func money(amount, currency string) types.Money {
	return types.Money{Amount: decimal.RequireFromString(amount), Currency: currency}
}

// testCharge builds a priced charge with bitcoin and ethereum networks.
func testCharge(status types.ChargeStatus) *types.Charge {
	charge := &types.Charge{
		Code:        "TESTCODE",
		PricingType: types.PricingFixed,
		Addresses: map[types.Network]string{
			types.NetworkBitcoin:  "bc1qexample",
			types.NetworkEthereum: "0x384Aa214be0B279cbf211e9b2C992d8633F77848",
		},
		Pricing: map[string]types.Money{
			types.PricingKeyLocal: money("10.00", "USD"),
			"bitcoin":             money("0.00045", "BTC"),
			"ethereum":            money("0.0031", "ETH"),
		},
		ExpiresAt: time.Now().Add(time.Hour),
		CancelURL: "https://merchant.example/cancel",
	}
	if status != "" {
		charge.Timeline = []types.TimelineEntry{{Time: time.Now(), Status: status}}
	}
	return charge
}

// withStatus returns a distinct snapshot of the charge advanced to status.
func withStatus(charge *types.Charge, status types.ChargeStatus) *types.Charge {
	next := *charge
	next.Timeline = append(append([]types.TimelineEntry{}, charge.Timeline...),
		types.TimelineEntry{Time: time.Now().Add(time.Minute), Status: status})
	return &next
}

func withPayment(charge *types.Charge, confirmations, required int) *types.Charge {
	next := *charge
	next.Payments = append(append([]types.Payment{}, charge.Payments...), types.Payment{
		TransactionID: "0xdeadbeef",
		Network:       types.NetworkEthereum,
		Value:         money("0.0031", "ETH"),
		Block:         types.PaymentBlock{Confirmations: confirmations, ConfirmationsRequired: required},
	})
	return &next
}
