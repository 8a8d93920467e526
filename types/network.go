package types

// Network represents supported payment networks
type Network string

const (
	NetworkBitcoin     Network = "bitcoin"
	NetworkBitcoinCash Network = "bitcoincash"
	NetworkEthereum    Network = "ethereum"
	NetworkLitecoin    Network = "litecoin"
	NetworkUSDC        Network = "usdc"
	NetworkDai         Network = "dai"
)

// Currency represents the asset priced and paid on a network
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyBCH  Currency = "BCH"
	CurrencyETH  Currency = "ETH"
	CurrencyLTC  Currency = "LTC"
	CurrencyUSDC Currency = "USDC"
	CurrencyDAI  Currency = "DAI"
)

var networkCurrencies = map[Network]Currency{
	NetworkBitcoin:     CurrencyBTC,
	NetworkBitcoinCash: CurrencyBCH,
	NetworkEthereum:    CurrencyETH,
	NetworkLitecoin:    CurrencyLTC,
	NetworkUSDC:        CurrencyUSDC,
	NetworkDai:         CurrencyDAI,
}

// Currency returns the currency paid on this network, or empty when the
// network is unknown.
func (n Network) Currency() Currency {
	return networkCurrencies[n]
}

// IsEVM reports whether payments on this network settle on an EVM chain.
func (n Network) IsEVM() bool {
	return n == NetworkEthereum || n == NetworkUSDC || n == NetworkDai
}

func (n Network) String() string {
	return string(n)
}

// IsToken reports whether the currency is a token contract rather than a
// chain-native asset.
func (c Currency) IsToken() bool {
	_, ok := tokenInfo[c]
	return ok
}

// Decimals returns the number of decimal places used when converting an
// amount of this currency to atomic units.
func (c Currency) Decimals() int {
	switch c {
	case CurrencyBTC, CurrencyBCH, CurrencyLTC:
		return 8
	case CurrencyETH, CurrencyDAI:
		return 18
	case CurrencyUSDC:
		return 6
	default:
		return 0
	}
}

// TokenInfo pins a token currency to its contract and chain.
type TokenInfo struct {
	Contract string `json:"contract"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chainId"`
}

var tokenInfo = map[Currency]TokenInfo{
	CurrencyUSDC: {
		Contract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals: 6,
		ChainID:  1,
	},
	CurrencyDAI: {
		Contract: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		Decimals: 18,
		ChainID:  1,
	},
}

// TokenInfoFor resolves contract info for a token currency.
func TokenInfoFor(c Currency) (TokenInfo, bool) {
	info, ok := tokenInfo[c]
	return info, ok
}
