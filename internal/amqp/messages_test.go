package amqp

import (
	"testing"
	"time"
)

func TestSpendingSyncMessageRoundTrip(t *testing.T) {
	msg := NewSpendingSyncMessage(42)
	if msg.Timestamp.IsZero() {
		t.Errorf("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	got, err := SpendingSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
	if !got.Timestamp.Equal(msg.Timestamp.Truncate(time.Nanosecond)) {
		t.Errorf("timestamp changed: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSpendingSyncMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := SpendingSyncMessageFromJSON([]byte("not json")); err == nil {
		t.Errorf("expected error for malformed payload")
	}
}
