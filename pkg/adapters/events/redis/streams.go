// Package redis publishes progress events to Redis Streams so that
// external consumers can follow runs across nodes.
package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/domain"
)

const streamKey = "agor:events"

// streamClient is the slice of the Redis client the sink uses.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamSink implements ports.EventSink over a Redis stream. Publishing
// is fire-and-forget: Emit never blocks the caller. Events are queued
// on a bounded channel drained by a background publisher; when the
// queue is full the oldest queued event is dropped to make room.
// Publish failures are logged, never surfaced to the run.
type StreamSink struct {
	client  streamClient
	maxLen  int64
	timeout time.Duration
	logger  *zap.Logger

	queue chan domain.ProgressEvent
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewStreamSink creates a stream sink and starts its publisher. maxLen
// bounds the stream with approximate trimming, queueSize bounds the
// in-process event queue.
func NewStreamSink(client *redis.Client, maxLen int64, queueSize int, logger *zap.Logger) *StreamSink {
	return newStreamSink(client, maxLen, queueSize, logger)
}

func newStreamSink(client streamClient, maxLen int64, queueSize int, logger *zap.Logger) *StreamSink {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &StreamSink{
		client:  client,
		maxLen:  maxLen,
		timeout: 5 * time.Second,
		logger:  logger,
		queue:   make(chan domain.ProgressEvent, queueSize),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Emit queues the event for publishing. Never blocks: a full queue
// drops the oldest queued event.
func (s *StreamSink) Emit(event domain.ProgressEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.queue <- event:
			return
		default:
		}
		// Queue full: drop the oldest event and retry.
		select {
		case dropped := <-s.queue:
			s.logger.Warn("event queue full, dropped oldest event",
				zap.String("run_id", dropped.RunID),
				zap.String("phase", string(dropped.Phase)))
		default:
		}
	}
}

func (s *StreamSink) run() {
	defer s.wg.Done()
	for {
		select {
		case event := <-s.queue:
			s.publish(event)
		case <-s.done:
			// Drain what was queued before Close.
			for {
				select {
				case event := <-s.queue:
					s.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (s *StreamSink) publish(event domain.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal progress event",
			zap.String("run_id", event.RunID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id": event.RunID,
			"phase":  string(event.Phase),
			"data":   string(data),
		},
	}
	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		s.logger.Error("failed to publish progress event",
			zap.String("run_id", event.RunID),
			zap.String("phase", string(event.Phase)),
			zap.Error(err))
		return
	}

	s.logger.Debug("progress event published",
		zap.String("run_id", event.RunID),
		zap.String("phase", string(event.Phase)))
}

// Close stops the publisher after draining queued events. The Redis
// client is owned by the caller.
func (s *StreamSink) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}
