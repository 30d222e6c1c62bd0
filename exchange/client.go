// Package exchange moves atom-space snapshots between processes over Redis.
//
// A snapshot is the store's only wire format; this package wraps it in an
// Envelope and offers two transports: fire-and-forget pub/sub for live
// knowledge handoff between agents, and keyed storage with a TTL for
// pick-up-later transfer.
package exchange

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noetic-sh/atomspace"
)

// ErrSnapshotNotFound is returned by LoadSnapshot when no snapshot is stored
// under the requested key (or its TTL has expired).
var ErrSnapshotNotFound = errors.New("exchange: snapshot not found")

// Envelope wraps a snapshot for transfer, carrying enough context for the
// receiving side to route it.
type Envelope struct {
	// ID uniquely identifies this transfer.
	ID string `json:"id"`

	// Space is the name of the space the snapshot was exported from.
	Space string `json:"space"`

	// Snapshot is the portable store contents.
	Snapshot *atomspace.Snapshot `json:"snapshot"`

	// SentAt is when the envelope was published or stored.
	SentAt time.Time `json:"sent_at"`
}

// NewEnvelope wraps a snapshot, assigning a fresh transfer id.
func NewEnvelope(snap *atomspace.Snapshot) Envelope {
	return Envelope{
		ID:       uuid.NewString(),
		Space:    snap.Space,
		Snapshot: snap,
		SentAt:   time.Now(),
	}
}

// Client defines the snapshot transport surface.
type Client interface {
	// PublishSnapshot sends an envelope to a pub/sub channel.
	PublishSnapshot(ctx context.Context, channel string, env Envelope) error

	// SubscribeSnapshots creates a subscription to a pub/sub channel.
	// Returns a channel that receives envelopes until ctx is cancelled.
	SubscribeSnapshots(ctx context.Context, channel string) (<-chan Envelope, error)

	// StoreSnapshot writes an envelope under a key with the given TTL.
	// A zero TTL stores it without expiry.
	StoreSnapshot(ctx context.Context, key string, env Envelope, ttl time.Duration) error

	// LoadSnapshot reads the envelope stored under a key.
	// Returns ErrSnapshotNotFound if the key does not exist.
	LoadSnapshot(ctx context.Context, key string) (*Envelope, error)

	// Close closes the connection.
	Close() error
}

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisClient implements Client using go-redis/v9.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a snapshot exchange client with the given options.
func NewRedisClient(opts Options) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// PublishSnapshot sends an envelope to a pub/sub channel.
func (c *RedisClient) PublishSnapshot(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// SubscribeSnapshots creates a subscription to a pub/sub channel.
func (c *RedisClient) SubscribeSnapshots(ctx context.Context, channel string) (<-chan Envelope, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	envelopes := make(chan Envelope)

	go func() {
		defer close(envelopes)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					// Skip malformed payloads but keep the subscription alive
					continue
				}

				select {
				case envelopes <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return envelopes, nil
}

// StoreSnapshot writes an envelope under a key with the given TTL.
func (c *RedisClient) StoreSnapshot(ctx context.Context, key string, env Envelope, ttl time.Duration) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot under %s: %w", key, err)
	}

	return nil
}

// LoadSnapshot reads the envelope stored under a key.
func (c *RedisClient) LoadSnapshot(ctx context.Context, key string) (*Envelope, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", key, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return &env, nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
