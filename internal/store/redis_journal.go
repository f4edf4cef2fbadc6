package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultJournalPrefix = "disclosure:journal:"

type RedisJournal struct {
	client *redis.Client
	prefix string
	max    int64
}

func dialRedisJournal(addr, password string, db int, prefix string, maxLen int) (*RedisJournal, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisJournal(client, prefix, maxLen), nil
}

// NewRedisJournal keeps at most maxLen records per context (default 1000) in a
// redis list.
func NewRedisJournal(client *redis.Client, prefix string, maxLen int) *RedisJournal {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultJournalPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisJournal{client: client, prefix: prefix, max: int64(maxLen)}
}

// Context lists live under prefix+"ctx:" so no context ID can name the
// sequence counter.
func (j *RedisJournal) key(contextID string) string {
	return j.prefix + "ctx:" + contextID
}

func (j *RedisJournal) seqKey() string {
	return j.prefix + "seq"
}

func (j *RedisJournal) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	id, err := j.client.Incr(ctx, j.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("journal sequence: %w", err)
	}
	rec.ID = id
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := j.key(rec.ContextID)
	pipe := j.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -j.max, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

func (j *RedisJournal) List(ctx context.Context, contextID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	values, err := j.client.LRange(ctx, j.key(contextID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	out := make([]Record, 0, len(values))
	for _, v := range values {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *RedisJournal) Delete(ctx context.Context, contextID string) error {
	return j.client.Del(ctx, j.key(contextID)).Err()
}

func (j *RedisJournal) Close() error {
	if j == nil || j.client == nil {
		return nil
	}
	return j.client.Close()
}
