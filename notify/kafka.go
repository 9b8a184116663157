package notify

import (
	"context"
	"log"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes order events for downstream consumers (accounting,
// warehouse). Keyed by order id so one order's events stay ordered.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaSink) Deliver(ctx context.Context, n *models.Notification) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(n.EventKey),
		Value:   n.Payload,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "kind", Value: []byte(n.Kind)}},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// LogSink stands in for Kafka when no brokers are configured.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, n *models.Notification) error {
	log.Printf("[events] %s key=%s %s", n.Kind, n.EventKey, n.Payload)
	return nil
}
