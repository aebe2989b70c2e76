package notify

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

// Kafka publishes notifications on a Kafka topic.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka returns a Kafka notifier connecting to the given brokers.
func NewKafka(brokers []string, cfg *sarama.Config, topic string) (*Kafka, error) {
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

// NewKafkaFromProducer wraps an existing producer; useful for tests.
func NewKafkaFromProducer(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// Notify implements Notifier.
func (k *Kafka) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Message{Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

// Close releases the underlying producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
