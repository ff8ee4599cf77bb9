package streaming

import (
	"encoding/json"
	"errors"
)

type EventType string

const (
	EventTypeRecordAdded    EventType = "record_added"
	EventTypeHistoryCleared EventType = "history_cleared"
)

// Event is one activity-stream message describing a history change.
type Event struct {
	Type          EventType `json:"type"`
	TraceID       string    `json:"trace_id,omitempty"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	TokenContract string    `json:"token_contract,omitempty"`
	TokenSymbol   string    `json:"token_symbol,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	SubmittedAt   int64     `json:"submitted_at,omitempty"`
	ClearedCount  int       `json:"cleared_count,omitempty"`
}

func Encode(event Event) ([]byte, error) {
	if event.Type == "" {
		return nil, errors.New("event type is required")
	}
	if event.Type == EventTypeRecordAdded && event.TxHash == "" {
		return nil, errors.New("tx_hash is required for record_added")
	}
	return json.Marshal(event)
}

func Decode(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, errors.New("event type is missing")
	}
	return event, nil
}
