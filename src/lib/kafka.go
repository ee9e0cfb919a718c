package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"vbs/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Publisher emits payment lifecycle events for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, payload types.JSONB) error
}

func GetKafkaProducerConfig(broker string, clientId string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         clientId,
		"acks":              "all",
	}
}

type KafkaPublisher struct {
	broker   string
	clientId string
	topic    string

	once     sync.Once
	producer *kafka.Producer
	err      error
}

func NewKafkaPublisher(broker, clientId, topic string) *KafkaPublisher {
	return &KafkaPublisher{broker: broker, clientId: clientId, topic: topic}
}

func (k *KafkaPublisher) getProducer() (*kafka.Producer, error) {
	k.once.Do(func() {
		log.Println("Initializing kafka Producer...")
		k.producer, k.err = kafka.NewProducer(GetKafkaProducerConfig(k.broker, k.clientId))
		if k.err != nil {
			log.Printf("Error on producer: %s\n", k.err.Error())
		}
	})
	return k.producer, k.err
}

// Publish waits for the broker's delivery report or for ctx to end.
func (k *KafkaPublisher) Publish(ctx context.Context, key string, payload types.JSONB) error {
	p, err := k.getProducer()
	if err != nil {
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	delivery := make(chan kafka.Event, 1)
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", k.topic, err)
	}
	select {
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery to %s: %w", k.topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaPublisher) Close() {
	if k.producer == nil {
		return
	}
	k.producer.Flush(5000)
	k.producer.Close()
}

func KafkaCreateTopics(ctx context.Context, broker string, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:         topic,
			NumPartitions: 10,
		})
	}
	result, err := a.CreateTopics(ctx, topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
