package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"walletlog/internal/domain"
)

// BalanceSource supplies ERC-20 balances from the chain.
type BalanceSource interface {
	TokenBalance(ctx context.Context, tokenContract string, owner string) (*big.Int, error)
}

// TokenBalance pairs a tracked token with an owner's current balance, both
// as raw base units and as a human-readable amount.
type TokenBalance struct {
	Symbol  domain.TokenSymbol `json:"symbol"`
	Address string             `json:"address"`
	Raw     string             `json:"raw"`
	Amount  string             `json:"amount"`
}

type BalanceService struct {
	source   BalanceSource
	registry *domain.Registry
}

func NewBalanceService(source BalanceSource, registry *domain.Registry) (*BalanceService, error) {
	if source == nil {
		return nil, errors.New("balance source is required")
	}
	if registry == nil {
		return nil, errors.New("token registry is required")
	}
	return &BalanceService{source: source, registry: registry}, nil
}

// Balances returns the owner's balance for every registered token.
func (s *BalanceService) Balances(ctx context.Context, owner string) ([]TokenBalance, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %s", owner)
	}
	tokens := s.registry.Tokens()
	balances := make([]TokenBalance, 0, len(tokens))
	for _, token := range tokens {
		raw, err := s.source.TokenBalance(ctx, token.Address.Hex(), owner)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", token.Symbol, err)
		}
		balances = append(balances, TokenBalance{
			Symbol:  token.Symbol,
			Address: token.Address.Hex(),
			Raw:     raw.String(),
			Amount:  s.registry.FormatAmount(raw, token.Symbol),
		})
	}
	return balances, nil
}
