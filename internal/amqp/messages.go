package amqp

import (
	"encoding/json"
	"time"
)

// SpendingSyncMessage asks the export worker to mirror one spending record to
// the ledger. It carries only the id; the worker reads the full row from the
// database, so a stale message can never overwrite newer data.
type SpendingSyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSpendingSyncMessage(id int64) *SpendingSyncMessage {
	return &SpendingSyncMessage{ID: id, Timestamp: time.Now()}
}

func (m *SpendingSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SpendingSyncMessageFromJSON(data []byte) (*SpendingSyncMessage, error) {
	var msg SpendingSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
