package events

import (
	"encoding/json"
	"time"
)

// LedgerEvent is the wire format for every message on the ledger exchange.
type LedgerEvent struct {
	Event         string `json:"event"`
	RestaurantID  int    `json:"restaurant_id"`
	TransactionID int    `json:"transaction_id,omitempty"`
	DebitID       int    `json:"debit_id,omitempty"`
	CreditID      int    `json:"credit_id,omitempty"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
	GeneratedCnt  int    `json:"generated_count,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func newEvent(event string, restaurantID int) LedgerEvent {
	return LedgerEvent{
		Event:        event,
		RestaurantID: restaurantID,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func (e LedgerEvent) toJSON() ([]byte, error) {
	return json.Marshal(e)
}
