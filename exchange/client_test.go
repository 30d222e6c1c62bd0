package exchange

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noetic-sh/atomspace"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(Options{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

// sampleEnvelope exports a small space and wraps it for transfer.
func sampleEnvelope(t *testing.T) Envelope {
	t.Helper()

	space := atomspace.NewSpace("scout")
	a, err := space.AddNode("Concept", "Agent_0", atomspace.WithTruth(0.9, 0.95))
	require.NoError(t, err)
	b, err := space.AddNode("Predicate", "Reasoning")
	require.NoError(t, err)
	_, err = space.AddLink("Inheritance", []string{a.ID, b.ID})
	require.NoError(t, err)

	return NewEnvelope(space.Export())
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()

		client, err := NewRedisClient(Options{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(Options{URL: "not-a-url"})
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewRedisClient(Options{
			URL:            "redis://127.0.0.1:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		assert.Error(t, err)
	})
}

func TestNewEnvelope(t *testing.T) {
	env := sampleEnvelope(t)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "scout", env.Space)
	assert.False(t, env.SentAt.IsZero())
	require.NotNil(t, env.Snapshot)
	assert.Len(t, env.Snapshot.Records, 3)
}

func TestStoreAndLoadSnapshot(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	env := sampleEnvelope(t)
	require.NoError(t, client.StoreSnapshot(ctx, "handoff:scout", env, time.Minute))

	loaded, err := client.LoadSnapshot(ctx, "handoff:scout")
	require.NoError(t, err)
	assert.Equal(t, env.ID, loaded.ID)
	assert.Equal(t, env.Space, loaded.Space)
	require.Len(t, loaded.Snapshot.Records, 3)

	// The transferred snapshot imports cleanly into a fresh space.
	restored := atomspace.NewSpace("base")
	require.NoError(t, restored.Import(loaded.Snapshot))
	stats := restored.Stats()
	assert.Equal(t, 3, stats.TotalAtoms)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Links)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.LoadSnapshot(context.Background(), "no-such-key")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestLoadSnapshot_Expired(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	env := sampleEnvelope(t)
	require.NoError(t, client.StoreSnapshot(ctx, "ephemeral", env, time.Second))

	mr.FastForward(2 * time.Second)

	_, err := client.LoadSnapshot(ctx, "ephemeral")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestPublishAndSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	envelopes, err := client.SubscribeSnapshots(ctx, "spaces")
	require.NoError(t, err)

	env := sampleEnvelope(t)
	require.NoError(t, client.PublishSnapshot(ctx, "spaces", env))

	select {
	case received := <-envelopes:
		assert.Equal(t, env.ID, received.ID)
		assert.Equal(t, "scout", received.Space)
		require.NotNil(t, received.Snapshot)
		assert.Len(t, received.Snapshot.Records, 3)
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	client, _ := setupTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	envelopes, err := client.SubscribeSnapshots(ctx, "spaces")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-envelopes:
		assert.False(t, open, "channel must close when the context is cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestSubscribe_SkipsMalformedPayloads(t *testing.T) {
	client, mr := setupTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	envelopes, err := client.SubscribeSnapshots(ctx, "spaces")
	require.NoError(t, err)

	mr.Publish("spaces", "not json")

	env := sampleEnvelope(t)
	require.NoError(t, client.PublishSnapshot(ctx, "spaces", env))

	select {
	case received := <-envelopes:
		assert.Equal(t, env.ID, received.ID, "the malformed payload is skipped, not fatal")
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}
