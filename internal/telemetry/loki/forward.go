package loki

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// pushAttempts bounds how often one message is offered to Loki before it is skipped.
const pushAttempts = 3

// MessageReader is the subset of *kafka.Reader used by Forward.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Pusher pushes one activity event.
type Pusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// Forward copies activity messages from r to p until ctx is done. A message is committed after
// it was pushed, or after pushAttempts failures so one bad message cannot stall the partition.
func Forward(ctx context.Context, r MessageReader, p Pusher, log *zap.Logger) error {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("worker: kafka fetch failed", zap.Error(err))
			continue
		}
		if err := pushWithRetry(ctx, p, msg.Value); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("worker: loki push failed; skipping message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warn("worker: kafka commit failed", zap.Error(err))
		}
	}
}

func pushWithRetry(ctx context.Context, p Pusher, value []byte) error {
	backoff := 200 * time.Millisecond
	var err error
	for attempt := 0; attempt < pushAttempts; attempt++ {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = p.PushEventJSON(pushCtx, value)
		cancel()
		if err == nil || attempt == pushAttempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil
}
