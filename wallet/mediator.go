package wallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/types"
)

// Mediator drives the direct-wallet payment protocol and owns its status.
// Single-shot per charge: once an attempt left idle, a new one is allowed
// only after a decline for a different currency than now requested.
type Mediator struct {
	provider       Provider
	defaultChainID int64
	log            logger.Logger
	metrics        metrics.Recorder

	mu     sync.Mutex
	status types.WalletStatus

	loadOnce sync.Once
	loadDone chan struct{}
	encoder  *transferEncoder
	loadErr  error
}

// Option configures a Mediator.
type Option func(*Mediator)

func WithLogger(l logger.Logger) Option {
	return func(m *Mediator) { m.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Mediator) { m.metrics = r }
}

// WithDefaultChainID sets the chain expected for native transfers. Token
// transfers always use the token's pinned chain.
func WithDefaultChainID(id int64) Option {
	return func(m *Mediator) { m.defaultChainID = id }
}

// New creates a mediator over the given provider. A nil provider means no
// wallet is present in the execution environment; any payment attempt then
// resolves to the unsupported status.
func New(provider Provider, opts ...Option) *Mediator {
	m := &Mediator{
		provider: provider,
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		status:   types.WalletIdleStatus(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current wallet status.
func (m *Mediator) Status() types.WalletStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Cancel forces the canceled status. Purely a UI dismissal: it cannot abort
// a transaction that was already broadcast.
func (m *Mediator) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = types.WalletStatus{State: types.WalletCanceled}
}

// Reset returns the mediator to idle for a new charge.
func (m *Mediator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = types.WalletIdleStatus()
}

// Pay runs the direct-wallet payment protocol for the picked network. It
// never returns an error; every failure path resolves into a status value.
// Preconditions that cannot be met (unpriced charge, unknown network or
// currency, token without contract info) make it a silent no-op.
func (m *Mediator) Pay(ctx context.Context, charge *types.Charge, network types.Network) {
	currency := network.Currency()

	m.mu.Lock()
	if !m.canAttemptLocked(currency) {
		m.mu.Unlock()
		return
	}
	if m.provider == nil {
		m.status = types.WalletStatus{State: types.WalletUnsupported}
		m.mu.Unlock()
		return
	}
	if charge == nil || !charge.Priced() || currency == "" {
		m.mu.Unlock()
		return
	}
	address, ok := charge.Addresses[network]
	if !ok {
		m.mu.Unlock()
		return
	}
	price, ok := charge.NetworkPrice(network)
	if !ok {
		m.mu.Unlock()
		return
	}
	var token *types.TokenInfo
	if currency.IsToken() {
		info, ok := types.TokenInfoFor(currency)
		if !ok {
			m.mu.Unlock()
			return
		}
		token = &info
	}
	m.status = types.WalletAskingStatus()
	m.mu.Unlock()

	// The transfer encoder loads in the background while the user decides
	// on the permission prompt.
	loadDone := m.beginEncoderLoad()

	if err := m.provider.RequestAccess(ctx); err != nil {
		m.log.Debug("wallet access refused", map[string]any{"currency": currency, "error": err.Error()})
		m.setStatus(types.WalletDeclinedStatus(currency))
		return
	}

	<-loadDone
	if m.loadErr != nil {
		m.log.Error("transfer encoder load failed", map[string]any{"error": m.loadErr.Error()})
		m.setStatus(types.WalletStatus{State: types.WalletFailed})
		return
	}

	want := m.expectedChainID(token)
	got, err := m.provider.ChainID(ctx)
	if err != nil {
		m.setStatus(types.WalletStatus{State: types.WalletFailed})
		return
	}
	if got == nil || got.Int64() != want {
		m.setStatus(types.WalletStatus{State: types.WalletWrongChain})
		return
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.setStatus(types.WalletStatus{State: types.WalletFailed})
		return
	}
	if len(accounts) == 0 {
		m.setStatus(types.WalletStatus{State: types.WalletNoAccount})
		return
	}

	req, err := m.buildTransfer(address, price, currency, token, want)
	if err != nil {
		m.log.Error("transfer encode failed", map[string]any{"currency": currency, "error": err.Error()})
		m.setStatus(types.WalletStatus{State: types.WalletFailed})
		return
	}

	events, err := m.provider.SendTransfer(ctx, req)
	if err != nil {
		// A synchronous submission error is the wallet rejecting the
		// transfer, the same as a user decline.
		m.setStatus(types.WalletDeclinedStatus(currency))
		return
	}
	m.metrics.IncCounter("wallet_transfer_submitted", map[string]string{"step": string(currency)})

	go m.consumeEvents(events, currency)
}

// canAttemptLocked is the re-entry guard: only idle, or a decline for a
// different currency, admits a new attempt.
func (m *Mediator) canAttemptLocked(currency types.Currency) bool {
	switch m.status.State {
	case types.WalletIdle:
		return true
	case types.WalletDeclined:
		return m.status.Currency != currency
	default:
		return false
	}
}

func (m *Mediator) beginEncoderLoad() <-chan struct{} {
	m.loadOnce.Do(func() {
		m.loadDone = make(chan struct{})
		go func() {
			m.encoder, m.loadErr = newTransferEncoder()
			close(m.loadDone)
		}()
	})
	return m.loadDone
}

func (m *Mediator) expectedChainID(token *types.TokenInfo) int64 {
	if token != nil {
		return token.ChainID
	}
	if m.defaultChainID > 0 {
		return m.defaultChainID
	}
	return 1
}

func (m *Mediator) buildTransfer(
	address string,
	price types.Money,
	currency types.Currency,
	token *types.TokenInfo,
	chainID int64,
) (TransferRequest, error) {
	decimals := currency.Decimals()
	if token != nil {
		decimals = token.Decimals
	}
	value := price.Amount.Shift(int32(decimals)).BigInt()

	if token != nil {
		data, err := m.encoder.EncodeTransfer(common.HexToAddress(address), value)
		if err != nil {
			return TransferRequest{}, err
		}
		return TransferRequest{
			To:       token.Contract,
			Data:     data,
			GasLimit: tokenTransferGasLimit,
			ChainID:  big.NewInt(chainID),
		}, nil
	}

	return TransferRequest{
		To:      address,
		Value:   value,
		ChainID: big.NewInt(chainID),
	}, nil
}

func (m *Mediator) setStatus(status types.WalletStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *Mediator) consumeEvents(events <-chan Event, currency types.Currency) {
	for ev := range events {
		m.applyEvent(ev, currency)
	}
}

// applyEvent is the explicit transition table over the closed event set.
func (m *Mediator) applyEvent(ev Event, currency types.Currency) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventHash:
		// A hash event carrying no hash is a covert decline.
		if ev.TxHash == "" {
			m.status = types.WalletDeclinedStatus(currency)
			return
		}
		m.status = types.WalletSubmittedStatus(ev.TxHash)
	case EventReceipt:
		if ev.Failed {
			m.status = types.WalletStatus{State: types.WalletFailed}
			return
		}
		if m.status.State == types.WalletSubmitted {
			m.status = types.WalletMinedStatus(m.status.TxHash, 0)
		}
	case EventConfirmation:
		if m.status.State != types.WalletDeclined {
			m.status = types.WalletMinedStatus(m.status.TxHash, ev.Confirmations)
		}
	case EventError:
		m.log.Debug("wallet transaction error", map[string]any{"currency": currency, "error": errString(ev.Err)})
		m.status = types.WalletDeclinedStatus(currency)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
