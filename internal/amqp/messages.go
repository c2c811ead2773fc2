package amqp

import (
	"encoding/json"
	"time"
)

// Collections a change message can refer to.
const (
	CollectionTransactions = "transactions"
	CollectionGroups       = "groups"
)

// LedgerChangedMessage announces that a ledger collection was mutated and
// persisted. It carries no record data; consumers read the current state
// from storage, so a late or replayed message is harmless.
type LedgerChangedMessage struct {
	Collection string    `json:"collection"`
	Count      int       `json:"count"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(collection string, count int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Collection: collection,
		Count:      count,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
