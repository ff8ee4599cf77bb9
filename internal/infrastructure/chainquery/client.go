package chainquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"walletlog/internal/domain"
)

const callTimeout = 10 * time.Second

// balanceOf(address) selector.
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Client is the chain-query collaborator, backed by an Ethereum JSON-RPC
// endpoint through ethclient.
type Client struct {
	eth *ethclient.Client
}

func Dial(ctx context.Context, rawURL string) (*Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("rpc url is required")
	}
	eth, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{eth: eth}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// TransactionReceipt fetches the mined receipt for a transaction hash and
// maps it to the enriched view, deriving the sender from the transaction
// itself since receipts do not carry it.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (domain.EnrichedReceipt, error) {
	if !isTxHash(txHash) {
		return domain.EnrichedReceipt{}, fmt.Errorf("invalid transaction hash: %s", txHash)
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	hash := common.HexToHash(txHash)
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return domain.EnrichedReceipt{}, err
	}
	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return domain.EnrichedReceipt{}, err
	}

	status := domain.ReceiptStatusReverted
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = domain.ReceiptStatusSuccess
	}
	effectiveGasPrice := big.NewInt(0)
	if receipt.EffectiveGasPrice != nil {
		effectiveGasPrice = new(big.Int).Set(receipt.EffectiveGasPrice)
	}

	enriched := domain.EnrichedReceipt{
		TxHash:            txHash,
		BlockNumber:       new(big.Int).Set(receipt.BlockNumber),
		GasUsed:           new(big.Int).SetUint64(receipt.GasUsed),
		Status:            status,
		Logs:              receipt.Logs,
		EffectiveGasPrice: effectiveGasPrice,
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		enriched.From = from.Hex()
	}
	if to := tx.To(); to != nil {
		enriched.To = to.Hex()
	}
	return enriched, nil
}

// TokenBalance calls balanceOf(owner) on an ERC-20 contract.
func (c *Client) TokenBalance(ctx context.Context, tokenContract string, owner string) (*big.Int, error) {
	if !common.IsHexAddress(tokenContract) {
		return nil, fmt.Errorf("invalid token contract: %s", tokenContract)
	}
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %s", owner)
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	contract := common.HexToAddress(tokenContract)
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.eth.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}

func isTxHash(value string) bool {
	return len(value) == 66 && strings.HasPrefix(value, "0x")
}
