// Package discovery announces atom spaces to etcd so that processes can see
// which spaces exist across a deployment.
//
// The in-process orchestrator remains the source of truth for space
// lifecycle; discovery only mirrors existence. Each announcement is tied to
// an etcd lease that a background goroutine renews every TTL/3, so entries
// for crashed processes disappear on their own.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// SpaceInfo describes an announced space.
type SpaceInfo struct {
	// Name is the space's registered name.
	Name string `json:"name"`

	// InstanceID identifies the announcing process instance (typically UUID),
	// so the same space name announced by two processes stays distinguishable.
	InstanceID string `json:"instance_id"`

	// Atoms is the space's atom count at announcement time.
	Atoms int `json:"atoms"`

	// Metadata contains deployment-specific attributes, e.g. the owning
	// agent's id or the host the process runs on.
	Metadata map[string]string `json:"metadata,omitempty"`

	// AnnouncedAt is when the space was announced.
	AnnouncedAt time.Time `json:"announced_at"`
}

// Config configures the etcd connection.
type Config struct {
	// Endpoints is the list of etcd endpoints, e.g. ["localhost:2379"].
	Endpoints []string

	// Namespace prefixes every key; defaults to "atomspace".
	Namespace string

	// TTL is the announcement lease duration in seconds; defaults to 30.
	TTL int

	// DialTimeout bounds connection establishment; defaults to 5s.
	DialTimeout time.Duration
}

// Client announces spaces to an etcd cluster and lists what other processes
// have announced. All methods are safe for concurrent use. Close the client
// to stop the lease keepalive goroutines.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	mu      sync.Mutex
	leases  map[string]clientv3.LeaseID // key: space name
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewClient connects to etcd and verifies connectivity.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("discovery endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "atomspace"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:    cli,
		namespace: namespace,
		ttl:       ttl,
		leases:    make(map[string]clientv3.LeaseID),
		cancels:   make(map[string]context.CancelFunc),
	}, nil
}

// Announce publishes the space under /<namespace>/spaces/<name>, tied to a
// fresh lease. Re-announcing the same space replaces the entry and restarts
// its keepalive, so callers may announce periodically to refresh the atom
// count.
func (c *Client) Announce(ctx context.Context, info SpaceInfo) error {
	if info.Name == "" {
		return fmt.Errorf("space name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("discovery client is closed")
	}

	if cancel, exists := c.cancels[info.Name]; exists {
		cancel()
		delete(c.cancels, info.Name)
		delete(c.leases, info.Name)
	}

	lease, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if info.AnnouncedAt.IsZero() {
		info.AnnouncedAt = time.Now()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal space info: %w", err)
	}

	if _, err := c.client.Put(ctx, c.key(info.Name), string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to announce space: %w", err)
	}

	c.leases[info.Name] = lease.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancels[info.Name] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, lease.ID)

	return nil
}

// Withdraw removes the announcement for a space by revoking its lease.
// Withdrawing a space that was never announced is a no-op.
func (c *Client) Withdraw(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("discovery client is closed")
	}

	if cancel, exists := c.cancels[name]; exists {
		cancel()
		delete(c.cancels, name)
	}

	lease, exists := c.leases[name]
	if !exists {
		return nil
	}
	delete(c.leases, name)

	if _, err := c.client.Revoke(ctx, lease); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}

// List returns every announced space in the namespace, from all processes.
func (c *Client) List(ctx context.Context) ([]SpaceInfo, error) {
	prefix := fmt.Sprintf("/%s/spaces/", c.namespace)

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	spaces := make([]SpaceInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info SpaceInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			// Skip invalid entries
			continue
		}
		spaces = append(spaces, info)
	}
	return spaces, nil
}

// Close stops every keepalive goroutine and closes the etcd connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for name, cancel := range c.cancels {
		cancel()
		delete(c.cancels, name)
	}
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

// keepalive renews the lease every TTL/3 until its context is cancelled.
func (c *Client) keepalive(ctx context.Context, lease clientv3.LeaseID) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.client.KeepAliveOnce(ctx, lease); err != nil {
				// The lease is gone (revoked or expired); nothing to renew.
				return
			}
		}
	}
}

func (c *Client) key(name string) string {
	return fmt.Sprintf("/%s/spaces/%s", c.namespace, name)
}
