package application

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"walletlog/internal/domain"
)

type mockBalanceSource struct {
	balances map[string]*big.Int
	err      error
}

func (m *mockBalanceSource) TokenBalance(ctx context.Context, tokenContract string, owner string) (*big.Int, error) {
	if m.err != nil {
		return nil, m.err
	}
	if balance, ok := m.balances[tokenContract]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func testRegistry() *domain.Registry {
	return domain.NewRegistry(
		domain.Token{Symbol: domain.TokenDAI, Address: common.HexToAddress("0x1D70D57ccD2798323232B2dD027B3aBcA5C00091"), Decimals: 18},
		domain.Token{Symbol: domain.TokenUSDC, Address: common.HexToAddress("0xC891481A0AaC630F4D89744ccD2C7D2C4215FD47"), Decimals: 6},
	)
}

func TestBalanceService_Balances(t *testing.T) {
	dai, _ := new(big.Int).SetString("1500000000000000000", 10)
	source := &mockBalanceSource{balances: map[string]*big.Int{
		"0x1D70D57ccD2798323232B2dD027B3aBcA5C00091": dai,
		"0xC891481A0AaC630F4D89744ccD2C7D2C4215FD47": big.NewInt(2500000),
	}}

	service, err := NewBalanceService(source, testRegistry())
	if err != nil {
		t.Fatalf("new balance service: %v", err)
	}

	balances, err := service.Balances(context.Background(), "0x000000000000000000000000000000000000dEaD")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Symbol != domain.TokenDAI || balances[0].Amount != "1.5" {
		t.Errorf("expected 1.5 DAI, got %s %s", balances[0].Amount, balances[0].Symbol)
	}
	if balances[1].Symbol != domain.TokenUSDC || balances[1].Amount != "2.5" {
		t.Errorf("expected 2.5 USDC, got %s %s", balances[1].Amount, balances[1].Symbol)
	}
	if balances[0].Raw != "1500000000000000000" {
		t.Errorf("expected raw base units, got %s", balances[0].Raw)
	}
}

func TestBalanceService_InvalidOwner(t *testing.T) {
	service, _ := NewBalanceService(&mockBalanceSource{}, testRegistry())
	if _, err := service.Balances(context.Background(), "not-an-address"); err == nil {
		t.Error("expected error for malformed owner address")
	}
}

func TestBalanceService_SourceErrorPropagates(t *testing.T) {
	service, _ := NewBalanceService(&mockBalanceSource{err: errors.New("rpc down")}, testRegistry())
	if _, err := service.Balances(context.Background(), "0x000000000000000000000000000000000000dEaD"); err == nil {
		t.Error("expected source error to propagate")
	}
}

func TestNewBalanceService_Validation(t *testing.T) {
	if _, err := NewBalanceService(nil, testRegistry()); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewBalanceService(&mockBalanceSource{}, nil); err == nil {
		t.Error("expected error for nil registry")
	}
}
