package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"walletlog/internal/domain"
)

// KeyValueStore is the durable storage collaborator: one opaque blob per
// key, no transactional guarantees.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// HistoryObserver receives store lifecycle notifications.
type HistoryObserver interface {
	OnRecordAdded(total int)
	OnDuplicateIgnored()
	OnRecordRejected()
	OnSaved(count int)
	OnSaveError()
	OnCleared(count int)
}

const (
	envelopeVersion = "1.0"

	// DefaultStorageKey is the fixed key the persisted envelope lives under.
	DefaultStorageKey = "wallet-tx-history"

	defaultSaveDebounce = 300 * time.Millisecond
	saveTimeout         = 5 * time.Second
)

type HistoryConfig struct {
	StorageKey   string
	SaveDebounce time.Duration
}

// HistoryStore is the single source of truth for the locally known
// transaction history: an append-ordered log, deduplicated by identifier,
// persisted through the storage collaborator with debounced writes. A nil
// storage degrades to session-only history.
type HistoryStore struct {
	storage  KeyValueStore
	observer HistoryObserver
	cfg      HistoryConfig

	mu      sync.Mutex
	records []domain.TransactionRecord
	index   map[string]struct{}
	timer   *time.Timer
	closed  bool
}

type envelope struct {
	FormatVersion string                     `json:"formatVersion"`
	Records       []domain.TransactionRecord `json:"records"`
	SavedAt       string                     `json:"savedAt"`
}

func NewHistoryStore(storage KeyValueStore, observer HistoryObserver, cfg HistoryConfig) *HistoryStore {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = defaultSaveDebounce
	}
	return &HistoryStore{
		storage:  storage,
		observer: observer,
		cfg:      cfg,
		index:    make(map[string]struct{}),
	}
}

// Initialize loads the persisted envelope. A parse failure, version mismatch
// or malformed record set discards the blob, removes it from storage and
// starts from an empty log; failures never propagate to the caller.
func (s *HistoryStore) Initialize(ctx context.Context) {
	if s.storage == nil {
		return
	}
	blob, ok, err := s.storage.Get(ctx, s.cfg.StorageKey)
	if err != nil {
		slog.Warn("history load failed", "key", s.cfg.StorageKey, "error", err)
		return
	}
	if !ok || len(blob) == 0 {
		return
	}
	records, ok := decodeEnvelope(blob)
	if !ok {
		slog.Warn("discarding unusable history envelope", "key", s.cfg.StorageKey)
		if err := s.storage.Delete(ctx, s.cfg.StorageKey); err != nil {
			slog.Warn("history envelope delete failed", "key", s.cfg.StorageKey, "error", err)
		}
		return
	}

	s.mu.Lock()
	s.records = records
	s.index = make(map[string]struct{}, len(records))
	for _, record := range records {
		s.index[record.Identifier] = struct{}{}
	}
	s.mu.Unlock()
	slog.Info("history loaded", "records", len(records))
}

func decodeEnvelope(blob []byte) ([]domain.TransactionRecord, bool) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, false
	}
	if env.FormatVersion != envelopeVersion || env.Records == nil {
		return nil, false
	}
	seen := make(map[string]struct{}, len(env.Records))
	for _, record := range env.Records {
		if record.Identifier == "" || !record.Kind.Valid() {
			return nil, false
		}
		if _, dup := seen[record.Identifier]; dup {
			return nil, false
		}
		seen[record.Identifier] = struct{}{}
	}
	return env.Records, true
}

// Add inserts the record at the front of the log and schedules a debounced
// save. Adding an identifier that is already present is a silent no-op;
// records with an empty identifier or invalid kind are rejected. Returns
// whether the record was inserted.
func (s *HistoryStore) Add(record domain.TransactionRecord) bool {
	if record.Identifier == "" || !record.Kind.Valid() {
		if s.observer != nil {
			s.observer.OnRecordRejected()
		}
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, exists := s.index[record.Identifier]; exists {
		s.mu.Unlock()
		if s.observer != nil {
			s.observer.OnDuplicateIgnored()
		}
		return false
	}
	s.records = append([]domain.TransactionRecord{record}, s.records...)
	s.index[record.Identifier] = struct{}{}
	total := len(s.records)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.OnRecordAdded(total)
	}
	return true
}

// Clear empties the log and deletes the persisted envelope immediately,
// bypassing the save debounce. There is no undo.
func (s *HistoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	count := len(s.records)
	s.records = nil
	s.index = make(map[string]struct{})
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Delete(ctx, s.cfg.StorageKey); err != nil {
			slog.Warn("history envelope delete failed", "key", s.cfg.StorageKey, "error", err)
		}
	}
	if s.observer != nil {
		s.observer.OnCleared(count)
	}
}

// Records returns the log, newest first.
func (s *HistoryStore) Records() []domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TransactionRecord(nil), s.records...)
}

// ByKind returns the records of one kind, preserving insertion order.
func (s *HistoryStore) ByKind(kind domain.Kind) []domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var filtered []domain.TransactionRecord
	for _, record := range s.records {
		if record.Kind == kind {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Close stops the debounce timer and flushes a pending save synchronously
// so a clean shutdown keeps the latest log.
func (s *HistoryStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := false
	if s.timer != nil {
		pending = s.timer.Stop()
		s.timer = nil
	}
	records := append([]domain.TransactionRecord(nil), s.records...)
	s.mu.Unlock()

	if pending {
		s.persist(records)
	}
}

func (s *HistoryStore) scheduleSaveLocked() {
	if s.storage == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.SaveDebounce, s.save)
}

func (s *HistoryStore) save() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	records := append([]domain.TransactionRecord(nil), s.records...)
	s.mu.Unlock()
	s.persist(records)
}

func (s *HistoryStore) persist(records []domain.TransactionRecord) {
	if s.storage == nil {
		return
	}
	blob, err := json.Marshal(envelope{
		FormatVersion: envelopeVersion,
		Records:       records,
		SavedAt:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("history encode failed", "error", err)
		if s.observer != nil {
			s.observer.OnSaveError()
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.cfg.StorageKey, blob); err != nil {
		slog.Warn("history save failed", "key", s.cfg.StorageKey, "error", err)
		if s.observer != nil {
			s.observer.OnSaveError()
		}
		return
	}
	if s.observer != nil {
		s.observer.OnSaved(len(records))
	}
}
