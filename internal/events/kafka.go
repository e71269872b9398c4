package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

// kafkaWriter is the subset of *kafka.Writer used for publishing.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by ticket code.
type KafkaPublisher struct {
	w kafkaWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.TicketEvent) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(ev.TicketCode),
		Value:   body,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "type", Value: []byte(TicketIssued)}},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
