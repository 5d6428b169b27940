// Package redisstore implements store.Store on Redis. Paths map to string
// keys under a namespace prefix. Transact uses WATCH/MULTI/EXEC and re-runs
// the read-modify-write when a watched key changes underneath it.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arcade/internal/cache"
	"arcade/internal/observability"
	"arcade/internal/store"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const backendName = "redis"

const scanBatch = 200

// Store is a Redis-backed store.Store.
type Store struct {
	client   *redis.Client
	prefix   string
	retry    store.RetryConfig
	metrics  *observability.StoreMetrics
	ownsConn bool
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithRetry sets the optimistic retry bounds.
func WithRetry(cfg store.RetryConfig) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithOwnedConnection makes Close also close the client.
func WithOwnedConnection() Option {
	return func(s *Store) { s.ownsConn = true }
}

// New wraps client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  cache.DefaultKeyPrefix,
		retry:   store.DefaultRetryConfig(),
		metrics: observability.NewStoreMetrics(backendName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) keys(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = s.key(p)
	}
	return out
}

func (s *Store) begin(ctx context.Context, op string) (context.Context, func(error)) {
	return store.Instrument(ctx, s.metrics, op)
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, path string) (_ []byte, err error) {
	ctx, end := s.begin(ctx, "get")
	defer func() { end(err) }()

	v, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	return v, err
}

// GetMany implements store.Store.
func (s *Store) GetMany(ctx context.Context, paths []string) (_ map[string][]byte, err error) {
	ctx, end := s.begin(ctx, "get_many")
	defer func() { end(err) }()
	return mget(ctx, s.client, s.keys(paths), paths)
}

type getter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func mget(ctx context.Context, c getter, keys, paths []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[paths[i]] = []byte(str)
		}
	}
	return out, nil
}

func (s *Store) queue(ctx context.Context, pipe redis.Pipeliner, writes store.Writes) {
	for _, p := range writes.Paths() {
		if v := writes[p]; v != nil {
			pipe.Set(ctx, s.key(p), v, 0)
		} else {
			pipe.Del(ctx, s.key(p))
		}
	}
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, writes store.Writes) (err error) {
	ctx, end := s.begin(ctx, "update")
	defer func() { end(err) }()
	if len(writes) == 0 {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queue(ctx, pipe, writes)
		return nil
	})
	return err
}

// Transact implements store.Store.
func (s *Store) Transact(ctx context.Context, paths []string, fn store.TxFunc) (err error) {
	ctx, end := s.begin(ctx, "transact")
	defer func() { end(err) }()

	if len(paths) == 0 {
		writes, err := fn(map[string][]byte{})
		if err != nil {
			return err
		}
		return s.Update(ctx, writes)
	}

	keys := s.keys(paths)
	return store.RunOptimistic(ctx, s.retry, backendName, func() error {
		return s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := mget(ctx, tx, keys, paths)
			if err != nil {
				return err
			}
			writes, err := fn(current)
			if err != nil {
				return err
			}
			if len(writes) == 0 {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.queue(ctx, pipe, writes)
				return nil
			})
			return err
		}, keys...)
	}, func(err error) bool {
		return errors.Is(err, redis.TxFailedErr)
	})
}

// Scan implements store.Store.
func (s *Store) Scan(ctx context.Context, prefix string) (_ map[string][]byte, err error) {
	ctx, end := s.begin(ctx, "scan")
	defer func() { end(err) }()

	pattern := escapeGlob(s.key(prefix)) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}

	out := make(map[string][]byte, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		stop := min(start+scanBatch, len(keys))
		batch := keys[start:stop]
		paths := make([]string, len(batch))
		for i, k := range batch {
			paths[i] = strings.TrimPrefix(k, s.prefix)
		}
		got, err := mget(ctx, s.client, batch, paths)
		if err != nil {
			return nil, err
		}
		for p, v := range got {
			out[p] = v
		}
	}
	return out, nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := observability.GetTraceLayer().TraceStoreOperation(ctx, backendName, "ping")
	defer span.End()
	span.SetAttributes(attribute.String("db.redis.prefix", s.prefix))
	return s.client.Ping(ctx).Err()
}

// Close implements store.Store.
func (s *Store) Close() error {
	if s.ownsConn {
		return s.client.Close()
	}
	return nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
