package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/davidmz/freefeed-server-1/internal/config"
)

type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(cfg *config.Config) *KafkaProducer {
	if !cfg.Kafka.Enabled {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaProducer{writer: w, topic: cfg.Kafka.Topic}
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *KafkaProducer) Send(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	return p.writer.WriteMessages(ctx, msg)
}

// KafkaObserver forwards events to the realtime topic, keyed by post
// id so one post's events stay ordered within a partition.
type KafkaObserver struct {
	producer *KafkaProducer
}

func NewKafkaObserver(producer *KafkaProducer) *KafkaObserver {
	return &KafkaObserver{producer: producer}
}

func (o *KafkaObserver) Name() string {
	return "kafka_observer"
}

func (o *KafkaObserver) Update(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.producer.Send(ctx, strconv.FormatInt(event.PostID, 10), payload)
}
