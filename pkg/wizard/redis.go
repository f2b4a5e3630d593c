package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionKeyPrefix = "flowdeck:wizard:session:"
	redisOwnerKeyPrefix   = "flowdeck:wizard:owner:"

	// DefaultSessionTTL is how long an idle session survives before Redis
	// expires it.
	DefaultSessionTTL = 24 * time.Hour
)

// RedisStore keeps wizard sessions in Redis so multiple API instances can
// serve the same builder client. Sessions expire after the configured TTL of
// inactivity; every save refreshes it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redisURL (redis://host:port/db) and verifies the
// connection with a bounded ping.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode wizard session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisSessionKeyPrefix+session.ID, data, s.ttl)

	if session.Owner != "" {
		pipe.Set(ctx, redisOwnerKeyPrefix+session.Owner, session.ID, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save wizard session: %w", err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, redisSessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("load wizard session: %w", err)
	}

	return decodeSession(data)
}

func (s *RedisStore) FindByOwner(ctx context.Context, owner string) (*Session, error) {
	id, err := s.client.Get(ctx, redisOwnerKeyPrefix+owner).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("resolve wizard session owner: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisSessionKeyPrefix+id)

	if session.Owner != "" {
		pipe.Del(ctx, redisOwnerKeyPrefix+session.Owner)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete wizard session: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
