package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"walletlog/internal/domain"
)

type mockReceiptSource struct {
	mu      sync.Mutex
	calls   int
	err     error
	gate    chan struct{}
	receipt domain.EnrichedReceipt
}

func (m *mockReceiptSource) TransactionReceipt(ctx context.Context, txHash string) (domain.EnrichedReceipt, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.EnrichedReceipt{}, err
	}
	receipt := m.receipt
	receipt.TxHash = txHash
	return receipt, nil
}

func (m *mockReceiptSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockReceiptSource) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type mockEnrichmentObserver struct {
	mu       sync.Mutex
	fetches  int
	loaded   int
	failed   int
	hits     int
	loadedCh chan struct{}
	failedCh chan struct{}
}

func newMockEnrichmentObserver() *mockEnrichmentObserver {
	return &mockEnrichmentObserver{
		loadedCh: make(chan struct{}, 16),
		failedCh: make(chan struct{}, 16),
	}
}

func (m *mockEnrichmentObserver) OnReceiptFetch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
}

func (m *mockEnrichmentObserver) OnReceiptLoaded() {
	m.mu.Lock()
	m.loaded++
	m.mu.Unlock()
	m.loadedCh <- struct{}{}
}

func (m *mockEnrichmentObserver) OnReceiptFailed() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
	m.failedCh <- struct{}{}
}

func (m *mockEnrichmentObserver) OnReceiptCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func awaitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch outcome")
	}
}

func TestReceiptCache_EmptyHashNotRequested(t *testing.T) {
	cache := NewReceiptCache(&mockReceiptSource{}, nil)
	details := cache.Details(context.Background(), "")
	if details.State != StateNotRequested {
		t.Errorf("expected not_requested, got %s", details.State)
	}
}

func TestReceiptCache_NilSourceNotRequested(t *testing.T) {
	cache := NewReceiptCache(nil, nil)
	details := cache.Details(context.Background(), "0x1")
	if details.State != StateNotRequested {
		t.Errorf("expected not_requested, got %s", details.State)
	}
}

func TestReceiptCache_CoalescesConcurrentRequests(t *testing.T) {
	source := &mockReceiptSource{
		gate:    make(chan struct{}),
		receipt: domain.EnrichedReceipt{BlockNumber: big.NewInt(42), Status: domain.ReceiptStatusSuccess},
	}
	observer := newMockEnrichmentObserver()
	cache := NewReceiptCache(source, observer)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		details := cache.Details(ctx, "0xaaa")
		if details.State != StateLoading {
			t.Fatalf("expected loading while fetch is in flight, got %s", details.State)
		}
	}

	close(source.gate)
	awaitSignal(t, observer.loadedCh)

	if source.callCount() != 1 {
		t.Errorf("expected a single upstream fetch, got %d", source.callCount())
	}

	details := cache.Details(ctx, "0xaaa")
	if details.State != StateLoaded {
		t.Fatalf("expected loaded, got %s", details.State)
	}
	if details.Receipt == nil || details.Receipt.BlockNumber.Int64() != 42 {
		t.Error("expected cached receipt data")
	}
}

func TestReceiptCache_LoadedIsTerminal(t *testing.T) {
	source := &mockReceiptSource{receipt: domain.EnrichedReceipt{Status: domain.ReceiptStatusSuccess}}
	observer := newMockEnrichmentObserver()
	cache := NewReceiptCache(source, observer)
	ctx := context.Background()

	cache.Details(ctx, "0xbbb")
	awaitSignal(t, observer.loadedCh)

	for i := 0; i < 3; i++ {
		if details := cache.Details(ctx, "0xbbb"); details.State != StateLoaded {
			t.Fatalf("expected loaded, got %s", details.State)
		}
	}

	if source.callCount() != 1 {
		t.Errorf("expected no refetch of a loaded receipt, got %d calls", source.callCount())
	}
	observer.mu.Lock()
	hits := observer.hits
	observer.mu.Unlock()
	if hits != 3 {
		t.Errorf("expected 3 cache hits, got %d", hits)
	}
}

func TestReceiptCache_FailureThenRetry(t *testing.T) {
	source := &mockReceiptSource{}
	source.setErr(errors.New("not found"))
	observer := newMockEnrichmentObserver()
	cache := NewReceiptCache(source, observer)
	ctx := context.Background()

	if details := cache.Details(ctx, "0xccc"); details.State != StateLoading {
		t.Fatalf("expected loading, got %s", details.State)
	}
	awaitSignal(t, observer.failedCh)

	// The failure is observable once; re-invoking starts the retry.
	source.setErr(nil)
	details := cache.Details(ctx, "0xccc")
	if details.State != StateFailed {
		t.Fatalf("expected failed snapshot, got %s", details.State)
	}
	if details.Err == "" {
		t.Error("expected failure message on the failed snapshot")
	}

	awaitSignal(t, observer.loadedCh)
	if details := cache.Details(ctx, "0xccc"); details.State != StateLoaded {
		t.Errorf("expected loaded after retry, got %s", details.State)
	}
	if source.callCount() != 2 {
		t.Errorf("expected 2 upstream fetches, got %d", source.callCount())
	}
}

func TestReceiptCache_IndependentHashes(t *testing.T) {
	source := &mockReceiptSource{receipt: domain.EnrichedReceipt{Status: domain.ReceiptStatusSuccess}}
	observer := newMockEnrichmentObserver()
	cache := NewReceiptCache(source, observer)
	ctx := context.Background()

	cache.Details(ctx, "0x1")
	cache.Details(ctx, "0x2")
	awaitSignal(t, observer.loadedCh)
	awaitSignal(t, observer.loadedCh)

	if source.callCount() != 2 {
		t.Errorf("expected one fetch per hash, got %d", source.callCount())
	}
	if details := cache.Details(ctx, "0x1"); details.Receipt == nil || details.Receipt.TxHash != "0x1" {
		t.Error("expected receipt keyed by its own hash")
	}
}
