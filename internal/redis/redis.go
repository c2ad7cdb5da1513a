package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	tickerKeyPrefix = "ticker:"
	globalTickerKey = tickerKeyPrefix + "global"
)

func NewClient(redisAddress string, redisUsername string, redisPassword string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// TickerStore holds live-event ticker text written by the score ingestion side.
type TickerStore struct {
	rdb redis.Cmdable
}

func NewTickerStore(rdb redis.Cmdable) *TickerStore {
	return &TickerStore{rdb: rdb}
}

func TickerKey(groupID string) string {
	return tickerKeyPrefix + groupID
}

// Set stores text for a group, or for every group when groupID is empty.
func (t *TickerStore) Set(ctx context.Context, groupID, text string, expiration time.Duration) error {
	key := globalTickerKey
	if groupID != "" {
		key = TickerKey(groupID)
	}
	if err := t.rdb.Set(ctx, key, text, expiration).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to store ticker text")
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// TickerText returns the group's ticker, falling back to the global one. Missing keys yield "".
func (t *TickerStore) TickerText(ctx context.Context, groupID string) (string, error) {
	vals, err := t.rdb.MGet(ctx, TickerKey(groupID), globalTickerKey).Result()
	if err != nil {
		return "", fmt.Errorf("ticker for %s: %w", groupID, err)
	}
	for _, v := range vals {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}
	return "", nil
}

// Ping reports whether the server answers.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
