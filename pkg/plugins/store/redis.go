package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/modhost/pkg/plugins"
)

// DefaultRedisKey is the hash holding plugin states
const DefaultRedisKey = "modhost:plugin_states"

// RedisStore keeps plugin states as JSON values of a hash keyed by plugin ID
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps a client
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// OpenRedis connects to the redis:// URL and checks the connection
func OpenRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStore(client, ""), nil
}

// Load returns every saved state ordered by module and path
func (s *RedisStore) Load(ctx context.Context) ([]plugins.State, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin states: %w", err)
	}

	states := make([]plugins.State, 0, len(values))
	for id, raw := range values {
		var st plugins.State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("failed to decode plugin state %s: %w", id, err)
		}
		states = append(states, st)
	}

	sort.Slice(states, func(i, j int) bool {
		if states[i].Module != states[j].Module {
			return states[i].Module < states[j].Module
		}
		return states[i].Path < states[j].Path
	})
	return states, nil
}

// Save writes states in one pipeline. States not passed are left alone.
func (s *RedisStore) Save(ctx context.Context, states []plugins.State) error {
	if len(states) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, st := range states {
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to encode plugin state %s: %w", st.ID, err)
		}
		pipe.HSet(ctx, s.key, string(st.ID), data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save plugin states: %w", err)
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
