package kafka_client

import (
	"buffettbackend/types"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type Config struct {
	BootstrapServers  string
	Topic             string
	NumPartitions     int
	ReplicationFactor int
}

// Producer publishes analysis events to a single topic.
type Producer struct {
	producer *kafka.Producer
	topic    string
}

// NewProducer connects to the cluster and makes sure the topic exists.
func NewProducer(cfg Config) (*Producer, error) {
	zap.L().Info("KAFKA_BOOTSTRAPSERVERS: ", zap.String("uri", cfg.BootstrapServers))

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"client.id":         "buffettbackend",
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer initialization failed: %w", err)
	}

	// Delivery report handler for produced messages
	go func() {
		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					zap.L().Error("Kafka delivery failed", zap.Error(ev.TopicPartition.Error))
				} else {
					zap.L().Debug("Delivered message", zap.String("topic", *ev.TopicPartition.Topic))
				}
			}
		}
	}()

	if err := ensureTopic(producer, cfg); err != nil {
		zap.L().Error("Failed to create topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}

	return &Producer{producer: producer, topic: cfg.Topic}, nil
}

func ensureTopic(producer *kafka.Producer, cfg Config) error {
	admin, err := kafka.NewAdminClientFromProducer(producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(
		ctx,
		[]kafka.TopicSpecification{{
			Topic:             cfg.Topic,
			NumPartitions:     cfg.NumPartitions,
			ReplicationFactor: cfg.ReplicationFactor}},
		kafka.SetAdminOperationTimeout(60*time.Second))
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return result.Error
		}
	}
	return nil
}

func (p *Producer) Publish(ctx context.Context, event types.AnalysisCompletedEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}

	zap.L().Debug("Sending message to kafka", zap.String("topic", p.topic), zap.String("symbol", event.Symbol))
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Symbol),
		Value:          message,
	}, nil)
}

func (p *Producer) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
