package types

// WalletState tags the direct-wallet payment mediator's status variant.
type WalletState string

const (
	WalletIdle        WalletState = "idle"
	WalletAsking      WalletState = "asking"
	WalletDeclined    WalletState = "declined"
	WalletSubmitted   WalletState = "submitted"
	WalletMined       WalletState = "mined"
	WalletCanceled    WalletState = "canceled"
	WalletFailed      WalletState = "failed"
	WalletUnsupported WalletState = "unsupported"
	WalletWrongChain  WalletState = "wrong-chain"
	WalletNoAccount   WalletState = "no-account"
)

// WalletStatus is the discriminated status of a direct-wallet payment
// attempt. The payload fields are meaningful only for the states that carry
// them: Currency for declined, TxHash and Confirmations for submitted/mined.
// Owned exclusively by the wallet mediator; every new charge starts at idle.
type WalletStatus struct {
	State         WalletState `json:"state"`
	Currency      Currency    `json:"currency,omitempty"`
	TxHash        string      `json:"txHash,omitempty"`
	Confirmations int         `json:"confirmations,omitempty"`
}

func WalletIdleStatus() WalletStatus {
	return WalletStatus{State: WalletIdle}
}

func WalletAskingStatus() WalletStatus {
	return WalletStatus{State: WalletAsking}
}

func WalletDeclinedStatus(currency Currency) WalletStatus {
	return WalletStatus{State: WalletDeclined, Currency: currency}
}

func WalletSubmittedStatus(txHash string) WalletStatus {
	return WalletStatus{State: WalletSubmitted, TxHash: txHash}
}

func WalletMinedStatus(txHash string, confirmations int) WalletStatus {
	return WalletStatus{State: WalletMined, TxHash: txHash, Confirmations: confirmations}
}
