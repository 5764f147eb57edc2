package gallery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) Invalidate() {
	c.calls.Add(1)
}

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisNotifier_Handle(t *testing.T) {
	n := NewRedisNotifier(unreachableClient(t), "chamada:test", discardLogger())
	target := &countingInvalidator{}

	n.handle(n.instanceID, target)
	assert.Zero(t, target.calls.Load(), "own message is ignored")

	n.handle("another-replica", target)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestRedisNotifier_NotifyError(t *testing.T) {
	n := NewRedisNotifier(unreachableClient(t), "chamada:test", discardLogger())

	err := n.Notify(context.Background())
	assert.ErrorContains(t, err, "publish invalidation")
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()

	_, err = NewRedisClient("http://not-redis")
	assert.ErrorContains(t, err, "parse redis url")
}
