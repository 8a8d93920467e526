package wallet

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// tokenTransferGasLimit is the fixed gas limit used for token-contract
// transfers.
const tokenTransferGasLimit = 100000

const erc20TransferABI = `
[
  {
    "name": "transfer",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [
      { "name": "", "type": "bool" }
    ]
  }
]
`

// transferEncoder encodes ERC-20 transfer calls. Parsing the ABI is the
// mediator's background "library load" step.
type transferEncoder struct {
	abi abi.ABI
}

func newTransferEncoder() (*transferEncoder, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, err
	}
	return &transferEncoder{abi: parsed}, nil
}

// EncodeTransfer packs transfer(to, value) call data.
func (e *transferEncoder) EncodeTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return e.abi.Pack("transfer", to, value)
}
