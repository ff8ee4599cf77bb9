package streaming

import (
	"strings"
	"testing"
)

func TestEncode_Validation(t *testing.T) {
	if _, err := Encode(Event{}); err == nil {
		t.Error("expected error for missing type")
	}
	if _, err := Encode(Event{Type: EventTypeRecordAdded}); err == nil {
		t.Error("expected error for record_added without tx_hash")
	}
	if _, err := Encode(Event{Type: EventTypeHistoryCleared, ClearedCount: 3}); err != nil {
		t.Errorf("expected history_cleared without tx_hash to encode, got %v", err)
	}
}

func TestEncodeDecode_RecordAdded(t *testing.T) {
	payload, err := Encode(Event{
		Type:        EventTypeRecordAdded,
		TxHash:      "0xabc",
		Kind:        "mint",
		TokenSymbol: "DAI",
		Amount:      "10",
		SubmittedAt: 1700000000000,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(payload), "cleared_count") {
		t.Error("expected zero fields omitted from payload")
	}

	event, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != EventTypeRecordAdded || event.TxHash != "0xabc" || event.Amount != "10" {
		t.Errorf("round trip mismatch: %+v", event)
	}
}

func TestDecode_RejectsBadPayloads(t *testing.T) {
	if _, err := Decode([]byte("{")); err == nil {
		t.Error("expected error for malformed json")
	}
	if _, err := Decode([]byte(`{"tx_hash":"0x1"}`)); err == nil {
		t.Error("expected error for missing type")
	}
}
