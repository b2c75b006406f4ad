package redisregistry

import (
	"context"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/wirechat/amp-go/disco"
)

// Config for the Redis-backed feature registry. Defaults can be loaded via
// envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: DISCO_KEY_PREFIX
	KeyPrefix string `env:"DISCO_KEY_PREFIX,default=disco:features:"`
}

// Registry stores each session's advertised feature vars in a Redis SET, so
// that every node of a multi-node deployment answers disco#info from the
// same state.
type Registry struct {
	client    *redis.Client
	keyPrefix string
}

var _ disco.FeatureRegistry = (*Registry)(nil)

func New(cfg Config) (*Registry, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "disco:features:"
	}
	return &Registry{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Registry using envdecode to populate Config.
func NewFromEnv() (*Registry, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (r *Registry) Close() error { return r.client.Close() }

func (r *Registry) featuresKey(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *Registry) AddFeature(ctx context.Context, sessionID string, featureVar string) error {
	return r.client.SAdd(ctx, r.featuresKey(sessionID), featureVar).Err()
}

func (r *Registry) RemoveFeature(ctx context.Context, sessionID string, featureVar string) error {
	return r.client.SRem(ctx, r.featuresKey(sessionID), featureVar).Err()
}

func (r *Registry) HasFeature(ctx context.Context, sessionID string, featureVar string) (bool, error) {
	return r.client.SIsMember(ctx, r.featuresKey(sessionID), featureVar).Result()
}

// Features returns a snapshot of the session's advertised feature vars.
func (r *Registry) Features(ctx context.Context, sessionID string) ([]string, error) {
	return r.client.SMembers(ctx, r.featuresKey(sessionID)).Result()
}

// Cleanup removes all state for a torn-down session.
func (r *Registry) Cleanup(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.featuresKey(sessionID)).Err()
}
