package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenSymbol names a tracked fungible token.
type TokenSymbol string

const (
	TokenDAI     TokenSymbol = "DAI"
	TokenUSDC    TokenSymbol = "USDC"
	TokenUnknown TokenSymbol = "unknown"
)

// Token describes one tracked token contract.
type Token struct {
	Symbol   TokenSymbol
	Address  common.Address
	Decimals int32
}

// Registry resolves contract addresses to tracked tokens and converts
// between human-readable amounts and base units.
type Registry struct {
	tokens []Token
}

func NewRegistry(tokens ...Token) *Registry {
	return &Registry{tokens: append([]Token(nil), tokens...)}
}

func (r *Registry) Tokens() []Token {
	return append([]Token(nil), r.tokens...)
}

// ResolveSymbol maps a contract address to its token symbol, or TokenUnknown
// when the address is malformed or not registered.
func (r *Registry) ResolveSymbol(contractAddress string) TokenSymbol {
	if !common.IsHexAddress(contractAddress) {
		return TokenUnknown
	}
	address := common.HexToAddress(contractAddress)
	for _, token := range r.tokens {
		if token.Address == address {
			return token.Symbol
		}
	}
	return TokenUnknown
}

func (r *Registry) Lookup(symbol TokenSymbol) (Token, bool) {
	for _, token := range r.tokens {
		if token.Symbol == symbol {
			return token, true
		}
	}
	return Token{}, false
}

// ParseAmount scales a human-readable decimal amount to the token's integer
// base units. Negative amounts and fractions finer than the token's
// precision are rejected.
func (r *Registry) ParseAmount(amount string, symbol TokenSymbol) (*big.Int, error) {
	token, ok := r.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown token: %s", symbol)
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	scaled := value.Shift(token.Decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q exceeds %d decimals", amount, token.Decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders base units as a human-readable decimal string.
func (r *Registry) FormatAmount(raw *big.Int, symbol TokenSymbol) string {
	if raw == nil {
		return "0"
	}
	token, ok := r.Lookup(symbol)
	if !ok {
		return raw.String()
	}
	return decimal.NewFromBigInt(raw, -token.Decimals).String()
}

// FormatHash truncates a hash or address for display (0x1234...abcd).
func FormatHash(value string) string {
	if value == "" {
		return "-"
	}
	if len(value) < 10 {
		return value
	}
	return value[:6] + "..." + value[len(value)-4:]
}
