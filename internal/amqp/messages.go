package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger change.
type EventType string

const (
	TransactionAdded   EventType = "transaction.added"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
	PeerAdded          EventType = "peer.added"
	PeerUpdated        EventType = "peer.updated"
	PeerDeleted        EventType = "peer.deleted"
	ProfileUpdated     EventType = "profile.updated"
	InsightsRefreshed  EventType = "insights.refreshed"
)

// LedgerEvent is one journal entry. Payload is the JSON of the affected
// record as it looked after the change.
type LedgerEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	TransactionID int64           `json:"transactionId,omitempty"`
	PeerID        string          `json:"peerId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewLedgerEvent stamps a new event with a random id and the current time.
func NewLedgerEvent(typ EventType, payload any) (*LedgerEvent, error) {
	ev := &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON parses and checks a delivered event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.Type == "" {
		return nil, fmt.Errorf("ledger event without id or type")
	}
	return &msg, nil
}
