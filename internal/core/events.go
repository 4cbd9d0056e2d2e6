package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventAccountAdjusted    EventType = "account.adjusted"
	EventAccountDeleted     EventType = "account.deleted"
)

// LedgerEvent records a committed ledger mutation. It is written to the
// outbox in the same database transaction as the mutation itself.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	AccountID     int64     `json:"account_id"`

	// PreviousAccountID is set when an update moved a transaction between accounts.
	PreviousAccountID int64           `json:"previous_account_id,omitempty"`
	TxType            TransactionType `json:"tx_type,omitempty"`
	AmountCents       int64           `json:"amount_cents,omitempty"`
	DeltaCents        int64           `json:"delta_cents"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

func NewLedgerEvent(t EventType, accountID int64, occurredAt time.Time) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.NewString(),
		Type:       t,
		AccountID:  accountID,
		OccurredAt: occurredAt.UTC(),
	}
}

// TransactionEvent builds the event for a transaction mutation.
func TransactionEvent(t EventType, tx Transaction, delta int64, occurredAt time.Time) LedgerEvent {
	ev := NewLedgerEvent(t, tx.AccountID, occurredAt)
	ev.TransactionID = tx.ID
	ev.TxType = tx.Type
	ev.AmountCents = tx.Amount
	ev.DeltaCents = delta
	return ev
}

// AffectedAccounts lists the accounts whose balances the event touched.
func (e LedgerEvent) AffectedAccounts() []int64 {
	if e.PreviousAccountID != 0 && e.PreviousAccountID != e.AccountID {
		return []int64{e.AccountID, e.PreviousAccountID}
	}
	return []int64{e.AccountID}
}

func (e LedgerEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalLedgerEvent(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, fmt.Errorf("unmarshal ledger event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return LedgerEvent{}, fmt.Errorf("unmarshal ledger event: missing id or type")
	}
	return ev, nil
}
