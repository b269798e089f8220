// Package redis provides a Redis-backed run store with result TTL for
// multi-node deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

const keyPrefix = "agor:run:"

// RunStore implements ports.RunStore over Redis. Records expire after
// the configured TTL.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRunStore creates a Redis run store.
func NewRunStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RunStore {
	return &RunStore{client: client, ttl: ttl, logger: logger}
}

// SaveRun serializes the record and stores it with the result TTL.
func (s *RunStore) SaveRun(ctx context.Context, record *domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}

	if err := s.client.Set(ctx, runKey(record.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving run record: %w", err)
	}

	s.logger.Debug("run record saved",
		zap.String("run_id", record.ID),
		zap.String("status", string(record.Status)))
	return nil
}

// GetRun retrieves a record by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	data, err := s.client.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("getting run record: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling run record: %w", err)
	}
	return &record, nil
}

// ListRuns scans all run keys and returns the records, newest first.
// Records that fail to load are skipped.
func (s *RunStore) ListRuns(ctx context.Context) ([]*domain.RunRecord, error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning run keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	records := make([]*domain.RunRecord, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var record domain.RunRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records, nil
}

func runKey(id string) string {
	return keyPrefix + id
}
