package application

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"walletlog/internal/domain"
)

// ReceiptSource is the chain-query collaborator. Timeout and retry policy
// are its responsibility, not the cache's.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash string) (domain.EnrichedReceipt, error)
}

// EnrichmentObserver receives cache lifecycle notifications.
type EnrichmentObserver interface {
	OnReceiptFetch()
	OnReceiptLoaded()
	OnReceiptFailed()
	OnReceiptCacheHit()
}

// FetchState is the per-identifier enrichment state.
type FetchState string

const (
	StateNotRequested FetchState = "not_requested"
	StateLoading      FetchState = "loading"
	StateLoaded       FetchState = "loaded"
	StateFailed       FetchState = "failed"
)

// ReceiptDetails is the view the cache exposes for one transaction hash.
type ReceiptDetails struct {
	State   FetchState
	Receipt *domain.EnrichedReceipt
	Err     string
}

// ReceiptCache bridges transaction hashes to enriched confirmation data with
// at-most-one fetch in flight per hash. Successful results are cached for
// the lifetime of the process; a mined receipt never changes, so they are
// never refreshed.
type ReceiptCache struct {
	source   ReceiptSource
	observer EnrichmentObserver

	mu      sync.Mutex
	entries map[string]*receiptEntry
}

type receiptEntry struct {
	state   FetchState
	receipt *domain.EnrichedReceipt
	err     string
}

func NewReceiptCache(source ReceiptSource, observer EnrichmentObserver) *ReceiptCache {
	return &ReceiptCache{
		source:   source,
		observer: observer,
		entries:  make(map[string]*receiptEntry),
	}
}

// Details returns the enrichment state for a transaction hash, starting a
// fetch when none has completed. Concurrent callers while a fetch is in
// flight attach to its outcome instead of issuing a second query. A failed
// entry is reported as failed and one fresh fetch starts, so re-invoking is
// the manual retry; a loaded entry is terminal. An empty hash or missing
// source stays not_requested.
func (c *ReceiptCache) Details(ctx context.Context, txHash string) ReceiptDetails {
	if txHash == "" || c.source == nil {
		return ReceiptDetails{State: StateNotRequested}
	}

	c.mu.Lock()
	entry, ok := c.entries[txHash]
	if !ok {
		c.entries[txHash] = &receiptEntry{state: StateLoading}
		c.mu.Unlock()
		c.startFetch(txHash)
		return ReceiptDetails{State: StateLoading}
	}
	snapshot := ReceiptDetails{State: entry.state, Receipt: entry.receipt, Err: entry.err}
	if entry.state == StateFailed {
		entry.state = StateLoading
		entry.err = ""
	}
	c.mu.Unlock()

	switch snapshot.State {
	case StateLoaded:
		if c.observer != nil {
			c.observer.OnReceiptCacheHit()
		}
	case StateFailed:
		c.startFetch(txHash)
	}
	return snapshot
}

func (c *ReceiptCache) startFetch(txHash string) {
	if c.observer != nil {
		c.observer.OnReceiptFetch()
	}
	go c.fetch(txHash)
}

// fetch runs detached from the requester's context: the result stays useful
// to any later consumer even when the original caller is gone.
func (c *ReceiptCache) fetch(txHash string) {
	ctx, span := otel.Tracer("walletlog/enrichment").Start(context.Background(), "enrichment.fetch_receipt")
	span.SetAttributes(attribute.String("tx.hash", txHash))
	defer span.End()

	receipt, err := c.source.TransactionReceipt(ctx, txHash)

	c.mu.Lock()
	entry := c.entries[txHash]
	if entry == nil {
		entry = &receiptEntry{}
		c.entries[txHash] = entry
	}
	if err != nil {
		entry.state = StateFailed
		entry.receipt = nil
		entry.err = err.Error()
	} else {
		entry.state = StateLoaded
		entry.receipt = &receipt
		entry.err = ""
	}
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.observer != nil {
			c.observer.OnReceiptFailed()
		}
		return
	}
	if c.observer != nil {
		c.observer.OnReceiptLoaded()
	}
}
