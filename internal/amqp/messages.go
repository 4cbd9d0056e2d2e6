package amqp

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"saldo/internal/core"
)

const contentTypeJSON = "application/json"

// NewLedgerEventPublishing wraps a ledger event in a persistent AMQP message.
// The event id doubles as the message id so consumers can drop redeliveries.
func NewLedgerEventPublishing(ev core.LedgerEvent) (amqp091.Publishing, error) {
	body, err := ev.Marshal()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal ledger event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

// LedgerEventFromDelivery decodes a delivered ledger event.
func LedgerEventFromDelivery(d amqp091.Delivery) (core.LedgerEvent, error) {
	if d.ContentType != "" && d.ContentType != contentTypeJSON {
		return core.LedgerEvent{}, fmt.Errorf("unsupported content type %q", d.ContentType)
	}
	return core.UnmarshalLedgerEvent(d.Body)
}
