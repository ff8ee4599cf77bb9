package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptStatus is the mined outcome of a transaction.
type ReceiptStatus string

const (
	ReceiptStatusSuccess  ReceiptStatus = "success"
	ReceiptStatusReverted ReceiptStatus = "reverted"
)

// EnrichedReceipt carries the confirmation details fetched from the chain
// for one transaction. BlockNumber, GasUsed and EffectiveGasPrice stay
// arbitrary precision; Logs pass through unmodified.
type EnrichedReceipt struct {
	TxHash            string        `json:"txHash"`
	BlockNumber       *big.Int      `json:"blockNumber"`
	GasUsed           *big.Int      `json:"gasUsed"`
	Status            ReceiptStatus `json:"status"`
	Logs              []*types.Log  `json:"logs"`
	EffectiveGasPrice *big.Int      `json:"effectiveGasPrice"`
	From              string        `json:"from"`
	To                string        `json:"to"`
}
