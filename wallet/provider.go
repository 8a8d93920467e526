// Package wallet mediates the optional direct-wallet payment flow: it asks
// a wallet provider for access, submits a native or token transfer for the
// picked network, and tracks the transaction's confirmation status. Every
// failure resolves into a status value; nothing in this package panics or
// returns an error to the session.
package wallet

import (
	"context"
	"math/big"
)

// EventKind tags one event in a submitted transaction's event stream.
type EventKind string

const (
	// EventHash reports the transaction hash assigned on broadcast.
	EventHash EventKind = "hash"
	// EventReceipt reports the transaction's inclusion receipt.
	EventReceipt EventKind = "receipt"
	// EventConfirmation reports an updated confirmation count.
	EventConfirmation EventKind = "confirmation"
	// EventError reports a provider error for the transaction.
	EventError EventKind = "error"
)

// Event is one transaction lifecycle event. Events of different kinds are
// causally ordered but otherwise arrive in no guaranteed order.
type Event struct {
	Kind          EventKind
	TxHash        string
	Failed        bool
	Confirmations int
	Err           error
}

// TransferRequest describes one transfer submission. For a native transfer
// To is the receiving address and Value the amount in atomic units; for a
// token transfer To is the token contract and Data the encoded call.
type TransferRequest struct {
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	ChainID  *big.Int
}

// Provider is the wallet the mediator drives. A synchronous SendTransfer
// error means the wallet rejected the submission; asynchronous transaction
// events arrive on the returned channel, which the provider closes when the
// stream ends.
type Provider interface {
	// RequestAccess asks for connection/account permission. An error means
	// the user refused.
	RequestAccess(ctx context.Context) error
	ChainID(ctx context.Context) (*big.Int, error)
	Accounts(ctx context.Context) ([]string, error)
	SendTransfer(ctx context.Context, req TransferRequest) (<-chan Event, error)
}
