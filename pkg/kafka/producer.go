package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Domain event names.
const (
	EventTicketPurchased  = "ticket.purchased"
	EventInventoryChanged = "inventory.changed"
	EventOrderCancelled   = "order.cancelled"
)

type Producer interface {
	Publish(ctx context.Context, key, eventType string, payload interface{}) error
	Close() error
}

// Envelope is the value written to the topic.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer returns a writer for topic, or a logging producer when no broker
// answers.
func NewProducer(brokers, topic string) Producer {
	if brokers == "" {
		logrus.Info("Kafka brokers not configured, using log producer")
		return NewLogProducer()
	}

	addrs := strings.Split(brokers, ",")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", addrs[0])
	if err != nil {
		logrus.WithError(err).Warn("Kafka connection failed, using log producer")
		return NewLogProducer()
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).Debug("Could not create topic (might already exist)")
	}

	logrus.WithField("brokers", brokers).Info("Connected to Kafka")
	return &kafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *kafkaProducer) Publish(ctx context.Context, key, eventType string, payload interface{}) error {
	value, err := json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	})
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

type logProducer struct{}

func NewLogProducer() Producer {
	return &logProducer{}
}

func (m *logProducer) Publish(_ context.Context, key, eventType string, payload interface{}) error {
	logrus.WithFields(logrus.Fields{
		"key":   key,
		"event": eventType,
	}).Debugf("domain event: %+v", payload)
	return nil
}

func (m *logProducer) Close() error {
	return nil
}
