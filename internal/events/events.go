// Package events publishes acquisition progress to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Event kinds.
const (
	KindTileIndex = "tileindex"
	KindTile      = "tile"
	KindPipeline  = "pipeline"
)

type Event struct {
	ID    string    `json:"id"`
	Kind  string    `json:"kind"`
	Ref   string    `json:"ref"`
	Path  string    `json:"path,omitempty"`
	Bytes int64     `json:"bytes,omitempty"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
	TS    time.Time `json:"ts"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

type KafkaPublisher struct {
	topic string
	prod  sarama.SyncProducer
	now   func() time.Time
}

func NewKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events: no brokers configured")
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create sync producer: %w", err)
	}
	return NewKafkaWithProducer(prod, topic), nil
}

// NewKafkaWithProducer wraps an existing producer; tests pass sarama mocks.
func NewKafkaWithProducer(prod sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, prod: prod, now: time.Now}
}

// Publish fills ID and TS when unset and sends the event keyed by Ref.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = p.now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Ref),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := p.prod.SendMessage(msg); err != nil {
		return fmt.Errorf("events: send: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}

// FromResult converts an item outcome into an event.
func FromResult(kind, ref, path string, bytes int64, err error) Event {
	ev := Event{Kind: kind, Ref: ref, Path: path, Bytes: bytes, OK: err == nil}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}
