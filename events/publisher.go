// Package events publishes ledger events to AMQP for downstream consumers
// (notification workers, the print agent bridge). Publishing is best effort:
// a broker failure is logged and never fails the originating request.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	routingKey   string
}

// NewPublisherFromEnv connects to the broker at AMQP_URL. Returns (nil, nil)
// when AMQP_URL is unset so callers can run without a broker.
func NewPublisherFromEnv() (*Publisher, error) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		return nil, nil
	}
	exchange := os.Getenv("AMQP_EXCHANGE")
	if exchange == "" {
		exchange = "finance"
	}
	key := os.Getenv("AMQP_ROUTING_KEY")
	if key == "" {
		key = "ledger_events"
	}
	return NewPublisher(url, exchange, key)
}

func NewPublisher(url, exchangeName, routingKey string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		routingKey:   routingKey,
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return p, nil
}

// TransactionEvent publishes a create/update/delete event for one transaction.
func (p *Publisher) TransactionEvent(ctx context.Context, event string, restaurantID, transactionID int) {
	e := newEvent(event, restaurantID)
	e.TransactionID = transactionID
	p.publish(ctx, e)
}

// TransferEvent publishes a completed transfer with both leg ids.
func (p *Publisher) TransferEvent(ctx context.Context, restaurantID, debitID, creditID int, amountCents int64) {
	e := newEvent("transfer.completed", restaurantID)
	e.DebitID = debitID
	e.CreditID = creditID
	e.AmountCents = amountCents
	p.publish(ctx, e)
}

// RecurringSyncEvent publishes the outcome of a recurrence projection.
func (p *Publisher) RecurringSyncEvent(ctx context.Context, restaurantID, generatedCount int) {
	e := newEvent("recurring.synced", restaurantID)
	e.GeneratedCnt = generatedCount
	p.publish(ctx, e)
}

func (p *Publisher) publish(ctx context.Context, e LedgerEvent) {
	body, err := e.toJSON()
	if err != nil {
		slog.ErrorContext(ctx, "marshal ledger event failed", "event", e.Event, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "publish ledger event failed",
			"event", e.Event, "restaurant_id", e.RestaurantID, "error", err)
		return
	}

	slog.DebugContext(ctx, "published ledger event", "event", e.Event, "restaurant_id", e.RestaurantID)
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
