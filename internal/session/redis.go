package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackpulse/trackpulse/internal/config"
)

const redisKeyPrefix = "trackpulse:session:"

// RedisStore persists sessions as JSON documents with a TTL so histories
// survive process restarts and are shared across replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, cfg config.SessionsConfig) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Append(ctx context.Context, sessionID string, entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().Format(time.RFC3339)
	}

	sess, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = &Session{ID: sessionID, CreatedAt: time.Now()}
	}
	sess.History = append(sess.History, entry)
	if len(sess.History) > HistoryLimit {
		sess.History = sess.History[len(sess.History)-HistoryLimit:]
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sessionID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (r *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		stats.TotalSessions++
		payload, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Stats{}, fmt.Errorf("load session %s: %w", iter.Val(), err)
		}
		var sess Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			continue
		}
		if len(sess.History) > 0 {
			stats.ActiveSessions++
		}
		stats.TotalQueries += len(sess.History)
		stats.SuccessfulQueries += sess.SuccessfulCount()
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("scan sessions: %w", err)
	}
	return stats, nil
}
