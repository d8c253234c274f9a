package revalidate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Signal is the message published for the rendering tier.
type Signal struct {
	OrgID string    `json:"org_id"`
	Paths []string  `json:"paths"`
	At    time.Time `json:"at"`
}

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes invalidation signals to a Kafka topic, keyed by organization.
type Publisher struct {
	writer MessageWriter
	now    func() time.Time
}

// NewPublisher returns a Publisher for topic, or nil when brokers or topic are empty.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           20 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// Invalidate implements Invalidator. A nil Publisher or an empty path list is a no-op.
func (p *Publisher) Invalidate(ctx context.Context, orgID string, paths []string) error {
	if p == nil || p.writer == nil || len(paths) == 0 {
		return nil
	}
	payload, err := json.Marshal(Signal{OrgID: orgID, Paths: paths, At: p.now().UTC()})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(orgID), Value: payload})
}

// Close closes the writer. Safe on a nil Publisher.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
