// Package announce emits release events after a successful publish so
// downstream consumers (deploy automation, changelog bots) learn about new
// image tags without polling the registry.
package announce

import (
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/n0computer/iroh-release/src/release"
)

// Kafka announces releases on a Kafka topic, keyed by version. It satisfies
// release.Announcer.
type Kafka struct {
	producer *kafka.Producer
	topic    string
}

func NewKafka(brokers, topic string) (*Kafka, error) {
	if brokers == "" || topic == "" {
		return nil, fmt.Errorf("announce: brokers and topic are required")
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return nil, err
	}
	return &Kafka{producer: p, topic: topic}, nil
}

func (k *Kafka) Announce(event release.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Version),
		Value:          payload,
	}
	if err := k.producer.Produce(message, nil); err != nil {
		return err
	}

	// Wait for the delivery report so a broker rejection fails the run
	// instead of vanishing.
	e := <-k.producer.Events()
	m, ok := e.(*kafka.Message)
	if !ok {
		return fmt.Errorf("announce: unexpected producer event %T", e)
	}
	return m.TopicPartition.Error
}

func (k *Kafka) Close() {
	k.producer.Close()
}

// Noop is the announcer for runs with no brokers configured.
type Noop struct{}

func (Noop) Announce(release.Event) error { return nil }
