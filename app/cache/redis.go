package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// OptionStore keeps process-wide options in Redis so several server
// instances can share one generation state.
type OptionStore struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewOptionStore(ctx context.Context, opts Options) (*OptionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return newOptionStore(client, opts.Prefix), nil
}

func newOptionStore(client *redis.Client, prefix string) *OptionStore {
	if prefix == "" {
		prefix = "sitemap"
	}
	return &OptionStore{client: client, prefix: prefix}
}

// OptionKey returns the Redis key an option is stored under.
func (s *OptionStore) OptionKey(name string) string {
	return fmt.Sprintf("%s:option:%s", s.prefix, name)
}

func (s *OptionStore) Get(ctx context.Context, name string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.OptionKey(name)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return val, true, nil
}

// Set stores the option without expiry.
func (s *OptionStore) Set(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, s.OptionKey(name), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

func (s *OptionStore) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.OptionKey(name)
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	return nil
}

func (s *OptionStore) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}

	return health
}

func (s *OptionStore) Close() error {
	return s.client.Close()
}
