package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

const exchangeType = "topic"

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes events to a durable topic exchange.
type RabbitMQPublisher struct {
	ch       amqpChannel
	conn     *amqp.Connection
	exchange string
}

// DialRabbitMQ connects, opens a channel and declares the exchange, retrying
// the dial a few times while the broker starts.
func DialRabbitMQ(url, exchange string) (*RabbitMQPublisher, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		obs.Logger.Warn("rabbitmq_dial_failed", slog.Int("attempt", i+1), slog.String("error", err.Error()))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,     // name
		exchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return &RabbitMQPublisher{ch: ch, conn: conn, exchange: exchange}, nil
}

func newRabbitMQPublisher(ch amqpChannel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch, exchange: exchange}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, ev model.TicketEvent) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		p.exchange,   // exchange
		TicketIssued, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.TicketCode,
			Timestamp:    ev.PurchasedAt,
			Type:         TicketIssued,
			Body:         body,
		},
	)
}

func (p *RabbitMQPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
