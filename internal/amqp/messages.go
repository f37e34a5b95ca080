package amqp

import (
	"encoding/json"
	"time"
)

// Change kinds carried by transaction events.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// TransactionEvent tells the export worker that a transaction changed.
// It carries identifiers only; the worker loads the current record from the
// database, so a stale or duplicate event is harmless.
type TransactionEvent struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(userID, transactionID, kind string) *TransactionEvent {
	return &TransactionEvent{
		UserID:        userID,
		TransactionID: transactionID,
		Kind:          kind,
		Timestamp:     time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
