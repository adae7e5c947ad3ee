package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys written by Store.
const DefaultPrefix = "lattice:run:"

// Store implements ports.RunStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	codec  Codec
}

type Option func(*Store)

// WithTTL sets the expiration for archived runs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for archived runs.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCodec sets how summaries are encoded. The default is MessagePack compressed with zstd.
func WithCodec(codec Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) (*Store, error) {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) (*Store, error) {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.codec == nil {
		codec, err := NewZstdCodec(MsgpackCodec{})
		if err != nil {
			return nil, err
		}
		store.codec = codec
	}

	return store, nil
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the summary to Redis.
func (s *Store) Save(ctx context.Context, summary domain.RunSummary) error {
	data, err := s.codec.Encode(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	pipe := s.client.Pipeline()

	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, s.key(summary.ID), data, s.ttl)

	// Index score is the expiry time, so List can prune expired members.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: summary.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load retrieves the summary from Redis.
func (s *Store) Load(ctx context.Context, runID string) (domain.RunSummary, error) {
	var summary domain.RunSummary

	val, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return summary, domain.ErrRunNotFound
		}
		return summary, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := s.codec.Decode(val, &summary); err != nil {
		return summary, fmt.Errorf("failed to decode run summary: %w", err)
	}

	return summary, nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns archived runs, pruning expired entries from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}

	runs, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
