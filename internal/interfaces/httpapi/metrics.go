package httpapi

import (
	"sync"
	"time"
)

// Metrics aggregates counters for the metrics endpoint. It implements the
// application observer interfaces so the store and cache report through it.
type Metrics struct {
	mu                sync.RWMutex
	startTime         time.Time
	historySize       int
	recordsAdded      uint64
	duplicatesIgnored uint64
	recordsRejected   uint64
	saves             uint64
	saveErrors        uint64
	clears            uint64
	receiptFetches    uint64
	receiptsLoaded    uint64
	receiptFailures   uint64
	receiptCacheHits  uint64
	eventsPublished   uint64
	publishErrors     uint64
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) SetHistorySize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historySize = size
}

func (m *Metrics) OnRecordAdded(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordsAdded++
	m.historySize = total
}

func (m *Metrics) OnDuplicateIgnored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicatesIgnored++
}

func (m *Metrics) OnRecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordsRejected++
}

func (m *Metrics) OnSaved(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
}

func (m *Metrics) OnSaveError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErrors++
}

func (m *Metrics) OnCleared(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.historySize = 0
}

func (m *Metrics) OnReceiptFetch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptFetches++
}

func (m *Metrics) OnReceiptLoaded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptsLoaded++
}

func (m *Metrics) OnReceiptFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptFailures++
}

func (m *Metrics) OnReceiptCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptCacheHits++
}

func (m *Metrics) IncEventPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublished++
}

func (m *Metrics) IncPublishError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErrors++
}

type Snapshot struct {
	StartTime         time.Time
	HistorySize       int
	RecordsAdded      uint64
	DuplicatesIgnored uint64
	RecordsRejected   uint64
	Saves             uint64
	SaveErrors        uint64
	Clears            uint64
	ReceiptFetches    uint64
	ReceiptsLoaded    uint64
	ReceiptFailures   uint64
	ReceiptCacheHits  uint64
	EventsPublished   uint64
	PublishErrors     uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		StartTime:         m.startTime,
		HistorySize:       m.historySize,
		RecordsAdded:      m.recordsAdded,
		DuplicatesIgnored: m.duplicatesIgnored,
		RecordsRejected:   m.recordsRejected,
		Saves:             m.saves,
		SaveErrors:        m.saveErrors,
		Clears:            m.clears,
		ReceiptFetches:    m.receiptFetches,
		ReceiptsLoaded:    m.receiptsLoaded,
		ReceiptFailures:   m.receiptFailures,
		ReceiptCacheHits:  m.receiptCacheHits,
		EventsPublished:   m.eventsPublished,
		PublishErrors:     m.publishErrors,
	}
}
