// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"addongate/pkg/platform/audit"
)

// Publisher emits audit events to Kafka. Produces are asynchronous; a sink
// failure is logged and never propagated to the request path.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists. Topic
// creation failures are logged and tolerated: the topic may already exist or
// be managed externally.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		logger.Warn("audit topic creation skipped", "topic", topic, "error", err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Emit publishes the event keyed by identity so per-identity ordering holds.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode audit event", "action", event.Action, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Identity),
		Value: payload,
	}
	// The produce outlives the request; a cancelled request context must not
	// abort the buffered record.
	p.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to publish audit event", "action", event.Action, "error", err)
		}
	})
}

// Close flushes pending produces and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
