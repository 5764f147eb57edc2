package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

func TestWarmer_LoadsUntilCancelled(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1)}}
	c := NewCache(src, Config{TTL: time.Millisecond, Dimension: 2}, discardLogger())
	w := NewWarmer(c, discardLogger(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return src.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop")
	}
	assert.True(t, c.Stats().Loaded)
}

type intCountingInvalidator struct {
	calls int
}

func (c *intCountingInvalidator) Invalidate() { c.calls++ }

func TestRedisNotifier_IgnoresOwnMessages(t *testing.T) {
	n := NewRedisNotifier(nil, "chan", discardLogger())
	target := &intCountingInvalidator{}

	n.handle(n.instanceID, target)
	assert.Zero(t, target.calls)

	n.handle("another-replica", target)
	assert.Equal(t, 1, target.calls)
}

func TestNewRedisClient_ParsesDB(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	if assert.NoError(t, err) {
		assert.Equal(t, 2, client.Options().DB)
		_ = client.Close()
	}

	_, err = NewRedisClient("http://not-redis")
	assert.Error(t, err)
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify(context.Background()))
}
