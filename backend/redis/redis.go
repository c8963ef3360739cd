// Package redis implements the write backend on Redis.
//
// Batches execute as one MULTI/EXEC transaction via TxPipeline:
// entities are stored as msgpack blobs, counters use INCRBY /
// INCRBYFLOAT (scalar) or HINCRBY / HINCRBYFLOAT (hash-field), and
// publishes go out as JSON on the configured channels.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cursive-labs/beacon/backend"
)

// DefaultTimeout is the default per-batch execution timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the Redis backend.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Timeout bounds one batch execution (default 5s).
	Timeout time.Duration
	// EntityTTL, when positive, expires persisted entities.
	EntityTTL time.Duration
}

// Backend commits operation batches against a Redis instance.
type Backend struct {
	config Config
	client *goredis.Client
}

// New creates a Redis backend from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Backend, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis backend requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis backend: invalid URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Execute commits the batch as one transaction. The batch either lands
// in full or fails in full; failures are not retried here. A batch
// execution timeout surfaces as a retryable error to the caller.
func (b *Backend) Execute(ctx context.Context, ops []backend.Op) error {
	if len(ops) == 0 {
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	pipe := b.client.TxPipeline()
	for _, op := range ops {
		if err := b.queue(execCtx, pipe, op); err != nil {
			return err
		}
	}

	if _, err := pipe.Exec(execCtx); err != nil {
		return fmt.Errorf("redis: batch of %d ops: %w", len(ops), err)
	}
	return nil
}

// queue appends one operation to the pipeline.
func (b *Backend) queue(ctx context.Context, pipe goredis.Pipeliner, op backend.Op) error {
	switch o := op.(type) {
	case backend.PersistOp:
		body, err := msgpack.Marshal(o.Entity)
		if err != nil {
			return fmt.Errorf("redis: marshal entity %s: %w", o.Key, err)
		}
		pipe.Set(ctx, o.Key, body, b.config.EntityTTL)

	case backend.IncrOp:
		switch {
		case o.Field != "" && o.Float:
			pipe.HIncrByFloat(ctx, o.Key, o.Field, o.DeltaFloat)
		case o.Field != "":
			pipe.HIncrBy(ctx, o.Key, o.Field, o.DeltaInt)
		case o.Float:
			pipe.IncrByFloat(ctx, o.Key, o.DeltaFloat)
		default:
			pipe.IncrBy(ctx, o.Key, o.DeltaInt)
		}

	case backend.PublishOp:
		body, err := json.Marshal(o.Payload)
		if err != nil {
			return fmt.Errorf("redis: marshal publish payload: %w", err)
		}
		for _, channel := range o.Channels {
			pipe.Publish(ctx, channel, body)
		}

	default:
		return fmt.Errorf("redis: unexpected op type %T", op)
	}
	return nil
}

// Get fetches and decodes a persisted entity into dest. Used by query
// surfaces and tests; the hot path never reads.
func (b *Backend) Get(ctx context.Context, key string, dest any) error {
	body, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	return msgpack.Unmarshal(body, dest)
}

// Close releases the client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// Verify Backend implements the backend interface.
var _ backend.Backend = (*Backend)(nil)
