package gallery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	records []domain.EncodingRecord
	err     error
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	// readEarly reads the records before waiting on gate, like a query whose
	// snapshot is taken when it starts.
	readEarly bool
}

func (f *fakeSource) LoadEncodings(ctx context.Context) ([]domain.EncodingRecord, error) {
	f.calls.Add(1)
	var early []domain.EncodingRecord
	var earlyErr error
	if f.readEarly {
		early, earlyErr = f.read()
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.readEarly {
		return early, earlyErr
	}
	return f.read()
}

func (f *fakeSource) read() ([]domain.EncodingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.EncodingRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeSource) set(records []domain.EncodingRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id string, enc ...float64) domain.EncodingRecord {
	return domain.EncodingRecord{IdentityID: id, DisplayName: "Name " + id, Encoding: enc}
}

func newTestCache(src Source, clock *fakeClock) *Cache {
	return NewCache(src, Config{TTL: 300 * time.Second, Dimension: 2}, discardLogger(), WithClock(clock.Now))
}

func ids(g *domain.Gallery) []string {
	out := make([]string, 0, g.Len())
	for _, e := range g.Entries {
		out = append(out, e.IdentityID)
	}
	return out
}

func TestCache_LoadsOnFirstUse(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1), record("b", 1, 0)}}
	c := newTestCache(src, newFakeClock())

	assert.False(t, c.Stats().Loaded)

	g, err := c.Gallery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(g))
	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, c.Stats().Loaded)
}

func TestCache_TTL(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1)}}
	clock := newFakeClock()
	c := newTestCache(src, clock)
	ctx := context.Background()

	first, err := c.Gallery(ctx)
	require.NoError(t, err)

	clock.Advance(299 * time.Second)
	second, err := c.Gallery(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second, "snapshot is reused before ttl")
	assert.Equal(t, int32(1), src.calls.Load())

	clock.Advance(time.Second)
	third, err := c.Gallery(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), src.calls.Load(), "exactly one reload at ttl")

	fourth, err := c.Gallery(ctx)
	require.NoError(t, err)
	assert.Same(t, third, fourth)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCache_InvalidateReflectsNewIdentity(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1)}}
	c := newTestCache(src, newFakeClock())
	ctx := context.Background()

	_, err := c.Gallery(ctx)
	require.NoError(t, err)

	src.set([]domain.EncodingRecord{record("a", 0, 1), record("new", 1, 1)}, nil)
	c.Invalidate()

	g, err := c.Gallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "new"}, ids(g))
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCache_FirstLoadFailureIsEmpty(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	c := newTestCache(src, newFakeClock())

	g, err := c.Gallery(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheLoadFailed)
	require.NotNil(t, g)
	assert.True(t, g.IsEmpty())
	assert.False(t, c.Stats().Loaded)
	assert.Equal(t, int64(1), c.Stats().LoadErrors)
}

func TestCache_ReloadFailureKeepsStaleSnapshot(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1)}}
	clock := newFakeClock()
	c := newTestCache(src, clock)
	ctx := context.Background()

	first, err := c.Gallery(ctx)
	require.NoError(t, err)

	src.set(nil, errors.New("timeout"))
	clock.Advance(time.Hour)

	g, err := c.Gallery(ctx)
	assert.ErrorIs(t, err, domain.ErrCacheLoadFailed)
	assert.Same(t, first, g, "stale snapshot is served")

	src.set([]domain.EncodingRecord{record("b", 1, 0)}, nil)
	g, err = c.Gallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(g), "recovers on the next call")
}

func TestCache_SkipsMalformedRecords(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{
		record("ok1", 0, 1),
		{IdentityID: "missing", DisplayName: "Missing"},
		record("short", 1),
		record("nan", math.NaN(), 0),
		record("inf", math.Inf(1), 0),
		record("", 0, 0),
		{IdentityID: "bad-meta", Encoding: domain.FaceEncoding{1, 1}, Problem: errors.New("invalid json")},
		record("ok2", 1, 0),
	}}
	c := newTestCache(src, newFakeClock())

	g, err := c.Gallery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok1", "ok2"}, ids(g))
	assert.Equal(t, 6, c.Stats().LastSkipped)
}

func TestCache_CoalescesConcurrentReloads(t *testing.T) {
	src := &fakeSource{
		records: []domain.EncodingRecord{record("a", 0, 1)},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	c := newTestCache(src, newFakeClock())

	const readers = 8
	var wg sync.WaitGroup
	results := make([]*domain.Gallery, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := c.Gallery(context.Background())
			assert.NoError(t, err)
			results[i] = g
		}(i)
	}

	<-src.started
	// let the other readers reach the in-flight reload
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, g := range results {
		assert.Same(t, results[0], g)
	}
}

func TestCache_InvalidateDuringLoadStaysStale(t *testing.T) {
	src := &fakeSource{
		records: []domain.EncodingRecord{record("a", 0, 1)},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	c := newTestCache(src, newFakeClock())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Gallery(context.Background())
	}()

	<-src.started
	src.set([]domain.EncodingRecord{record("a", 0, 1), record("late", 1, 1)}, nil)
	c.Invalidate()
	close(src.gate)
	<-done

	src.gate = nil
	g, err := c.Gallery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "late"}, ids(g), "snapshot from before the invalidation is not trusted")
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCache_ReadAfterInvalidateDoesNotJoinOlderLoad(t *testing.T) {
	src := &fakeSource{
		records:   []domain.EncodingRecord{record("a", 0, 1)},
		gate:      make(chan struct{}),
		started:   make(chan struct{}, 4),
		readEarly: true,
	}
	c := newTestCache(src, newFakeClock())

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = c.Gallery(context.Background())
	}()
	<-src.started

	src.set([]domain.EncodingRecord{record("a", 0, 1), record("new", 1, 1)}, nil)
	c.Invalidate()

	type result struct {
		g   *domain.Gallery
		err error
	}
	second := make(chan result, 1)
	go func() {
		g, err := c.Gallery(context.Background())
		second <- result{g, err}
	}()
	<-src.started

	close(src.gate)
	<-firstDone
	res := <-second

	require.NoError(t, res.err)
	assert.Equal(t, []string{"a", "new"}, ids(res.g))
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCache_RefreshDoesNotJoinOlderLoad(t *testing.T) {
	src := &fakeSource{
		records:   []domain.EncodingRecord{record("a", 0, 1)},
		gate:      make(chan struct{}),
		started:   make(chan struct{}, 4),
		readEarly: true,
	}
	c := newTestCache(src, newFakeClock())

	go func() { _, _ = c.Gallery(context.Background()) }()
	<-src.started

	src.set([]domain.EncodingRecord{record("a", 0, 1), record("new", 1, 1)}, nil)
	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(context.Background()) }()
	<-src.started

	close(src.gate)
	require.NoError(t, <-refreshed)

	g, err := c.Gallery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "new"}, ids(g))
}

func TestCache_LiveWaiterSurvivesCancelledStarter(t *testing.T) {
	src := &fakeSource{
		records: []domain.EncodingRecord{record("a", 0, 1)},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	c := newTestCache(src, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := c.Gallery(ctx)
		starterErr <- err
	}()
	<-src.started

	type result struct {
		g   *domain.Gallery
		err error
	}
	waiter := make(chan result, 1)
	go func() {
		g, err := c.Gallery(context.Background())
		waiter <- result{g, err}
	}()
	// let the waiter join the in-flight load
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-starterErr, domain.ErrCacheLoadFailed)

	close(src.gate)
	res := <-waiter
	require.NoError(t, res.err)
	assert.Equal(t, []string{"a"}, ids(res.g))
	assert.True(t, c.Stats().Loaded)
	assert.Equal(t, int64(0), c.Stats().LoadErrors)
}

func TestCache_CancelledRequestDoesNotPublish(t *testing.T) {
	src := &fakeSource{
		records: []domain.EncodingRecord{record("a", 0, 1)},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newTestCache(src, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Gallery(ctx)
		errCh <- err
	}()

	<-src.started
	cancel()

	assert.ErrorIs(t, <-errCh, domain.ErrCacheLoadFailed)
	assert.Eventually(t, func() bool {
		return src.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
	assert.False(t, c.Stats().Loaded)
}

func TestCache_Refresh(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1)}}
	c := newTestCache(src, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, int32(2), src.calls.Load())

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(2), stats.Reloads)
}

func TestCache_ConcurrentReadersAndInvalidations(t *testing.T) {
	src := &fakeSource{records: []domain.EncodingRecord{record("a", 0, 1), record("b", 1, 0)}}
	c := newTestCache(src, newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g, err := c.Gallery(ctx)
			assert.NoError(t, err)
			// every published gallery is complete
			if g.Len() != 0 {
				assert.Equal(t, 2, g.Len())
			}
		}()
		go func() {
			defer wg.Done()
			c.Invalidate()
		}()
	}
	wg.Wait()
}

func TestCache_LogsWithCallerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "gallery")
	c := NewCache(&fakeSource{err: errors.New("connection refused")}, Config{Dimension: 2}, logger)

	_, err := c.Gallery(context.Background())
	require.Error(t, err)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component"`))
}
