// Package notify 在快照发布后向 Kafka 投递一条轻量通知，下游按需拉取完整快照。
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/LJTian/NewsPulse/internal/snapshot"
)

// Event 快照已发布的通知，不携带文章正文
type Event struct {
	GeneratedAt string         `json:"generated_at"`
	Source      string         `json:"source"`
	Items       int            `json:"items"`
	Sections    map[string]int `json:"sections"`
}

type Config struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher 实现 snapshot.Publisher
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	// SyncProducer 要求开启
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, cfg.Topic), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(_ context.Context, doc *snapshot.Document, _ []byte) error {
	payload, err := json.Marshal(Event{
		GeneratedAt: doc.GeneratedAt,
		Source:      doc.Source,
		Items:       len(doc.Items),
		Sections:    doc.SectionCounts(),
	})
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(doc.Source),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
