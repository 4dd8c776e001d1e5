package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	HistoryPrefix       = "history:"
	HistoryTTL          = 30 * 24 * time.Hour
	DefaultHistoryLimit = 200
)

// Store keeps the most recent encoded messages of each couple in a capped
// Redis list, oldest first. It is used to hydrate a timeline on join.
type Store struct {
	rdb   *redis.Client
	limit int
}

// NewStore creates a history store keeping at most limit messages per
// couple. A non-positive limit means DefaultHistoryLimit.
func NewStore(rdb *redis.Client, limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{rdb: rdb, limit: limit}
}

// Append pushes a message onto the couple's history and trims it to the
// configured limit.
func (s *Store) Append(ctx context.Context, coupleID string, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("chat: encode history entry: %w", err)
	}

	key := HistoryPrefix + coupleID
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.limit), -1)
	pipe.Expire(ctx, key, HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("chat: append history: %w", err)
	}
	return nil
}

// Recent returns up to n of the couple's latest messages, oldest first. A
// non-positive n means the store limit.
func (s *Store) Recent(ctx context.Context, coupleID string, n int) ([]Message, error) {
	if n <= 0 || n > s.limit {
		n = s.limit
	}
	raw, err := s.rdb.LRange(ctx, HistoryPrefix+coupleID, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: read history: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("chat: decode history entry: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear deletes a couple's history.
func (s *Store) Clear(ctx context.Context, coupleID string) error {
	return s.rdb.Del(ctx, HistoryPrefix+coupleID).Err()
}
