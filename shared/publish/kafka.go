// Package publish hands finished forecast reports to downstream consumers
// over Kafka.
package publish

import (
	"encoding/json"
	"fmt"
	"log"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/config"

	"github.com/Shopify/sarama"
)

// KafkaPublisher writes one JSON message per report, keyed by location and
// measurement so a compacted topic keeps the latest forecast per station.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newKafkaPublisher(producer, cfg.Topic), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(report *models.AirQualityReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(MessageKey(report)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish report to %s: %w", p.topic, err)
	}

	log.Printf("Published forecast to %s (partition %d, offset %d)", p.topic, partition, offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// MessageKey is "<location>/<measurement>"
func MessageKey(report *models.AirQualityReport) string {
	return report.LocationName + "/" + report.Measurement
}
