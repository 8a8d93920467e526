package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NodeProvider implements Provider against an Ethereum RPC node with a
// locally held key, for environments without a browser wallet. It signs and
// broadcasts the transfer itself and synthesizes the transaction event
// stream by polling for the receipt and the head block.
type NodeProvider struct {
	client        *ethclient.Client
	key           *ecdsa.PrivateKey
	from          common.Address
	confirmTarget int
	pollInterval  time.Duration
}

// NodeProviderOption configures a NodeProvider.
type NodeProviderOption func(*NodeProvider)

// WithConfirmTarget sets how many confirmations to report before the event
// stream ends.
func WithConfirmTarget(n int) NodeProviderOption {
	return func(p *NodeProvider) { p.confirmTarget = n }
}

// WithPollInterval sets the receipt/head polling interval.
func WithPollInterval(d time.Duration) NodeProviderOption {
	return func(p *NodeProvider) { p.pollInterval = d }
}

// NewNodeProvider dials an Ethereum RPC node and loads the signing key from
// its hex encoding.
func NewNodeProvider(rpcURL, hexKey string, opts ...NodeProviderOption) (*NodeProvider, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	p := &NodeProvider{
		client:        client,
		key:           key,
		from:          crypto.PubkeyToAddress(key.PublicKey),
		confirmTarget: 6,
		pollInterval:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RequestAccess is a no-op: the key is held locally, there is no user
// permission to ask for.
func (p *NodeProvider) RequestAccess(ctx context.Context) error {
	return nil
}

func (p *NodeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.client.ChainID(ctx)
}

func (p *NodeProvider) Accounts(ctx context.Context) ([]string, error) {
	return []string{p.from.Hex()}, nil
}

func (p *NodeProvider) SendTransfer(ctx context.Context, req TransferRequest) (<-chan Event, error) {
	chainID := req.ChainID
	if chainID == nil {
		id, err := p.client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		chainID = id
	}

	nonce, err := p.client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = 21000
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	to := common.HexToAddress(req.To)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	events := make(chan Event, 8)
	go p.watch(ctx, signed.Hash(), events)
	return events, nil
}

// watch emits the hash, receipt and confirmation events for a broadcast
// transaction, then closes the stream.
func (p *NodeProvider) watch(ctx context.Context, hash common.Hash, events chan<- Event) {
	defer close(events)

	events <- Event{Kind: EventHash, TxHash: hash.Hex()}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	var receipt *ethtypes.Receipt
	for receipt == nil {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r, err := p.client.TransactionReceipt(ctx, hash)
		if err != nil {
			// Not yet mined; keep waiting.
			continue
		}
		receipt = r
	}

	failed := receipt.Status == ethtypes.ReceiptStatusFailed
	events <- Event{Kind: EventReceipt, TxHash: hash.Hex(), Failed: failed}
	if failed {
		return
	}

	reported := 0
	for reported < p.confirmTarget {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		head, err := p.client.BlockNumber(ctx)
		if err != nil {
			continue
		}
		confs := int(new(big.Int).Sub(new(big.Int).SetUint64(head), receipt.BlockNumber).Int64()) + 1
		if confs > reported {
			reported = confs
			events <- Event{Kind: EventConfirmation, TxHash: hash.Hex(), Confirmations: confs}
		}
	}
}
