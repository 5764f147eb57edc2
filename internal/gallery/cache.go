// Package gallery keeps the in-memory snapshot of enrolled encodings that
// recognition matches against.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	DefaultTTL         = 300 * time.Second
	DefaultLoadTimeout = 10 * time.Second

	reloadKey = "gallery"
)

// errLoadAbandoned marks a load stopped because the caller that started it went
// away. Waiters that are still live start another one.
var errLoadAbandoned = errors.New("gallery load abandoned by its caller")

// Source loads every enrolled encoding. Rows may come back malformed; the
// cache validates and skips them.
type Source interface {
	LoadEncodings(ctx context.Context) ([]domain.EncodingRecord, error)
}

// Config controls cache freshness and validation.
type Config struct {
	TTL         time.Duration
	LoadTimeout time.Duration
	Dimension   int
}

// Stats describes the published snapshot.
type Stats struct {
	Size        int       `json:"size"`
	LoadedAt    time.Time `json:"loaded_at"`
	Loaded      bool      `json:"loaded"`
	Reloads     int64     `json:"reloads"`
	LoadErrors  int64     `json:"load_errors"`
	LastSkipped int       `json:"last_skipped"`
}

type snapshot struct {
	gallery    *domain.Gallery
	loadedAt   time.Time
	generation uint64
	skipped    int
}

// Cache holds the current gallery snapshot. Readers never see a partially
// built gallery: reloads construct a new one and publish it with one atomic
// store. Invalidate bumps a generation counter, which makes every snapshot
// taken before it stale.
type Cache struct {
	source Source
	config Config
	logger *slog.Logger
	now    func() time.Time

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	publishMu  sync.Mutex
	group      singleflight.Group

	reloads    atomic.Int64
	loadErrors atomic.Int64
}

type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(source Source, config Config, logger *slog.Logger, opts ...Option) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = DefaultLoadTimeout
	}

	c := &Cache{
		source: source,
		config: config,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gallery returns the current snapshot, reloading it first when it was never
// loaded, has outlived the TTL or was invalidated. When that reload fails the
// previous snapshot (or an empty gallery) is returned together with an error
// wrapping domain.ErrCacheLoadFailed; the gallery is usable either way.
func (c *Cache) Gallery(ctx context.Context) (*domain.Gallery, error) {
	snap := c.current.Load()
	if c.fresh(snap) {
		return snap.gallery, nil
	}

	if err := c.reload(ctx); err != nil {
		return c.galleryOf(c.current.Load()), err
	}
	return c.galleryOf(c.current.Load()), nil
}

// Refresh reloads unconditionally.
func (c *Cache) Refresh(ctx context.Context) error {
	c.Invalidate()
	return c.reload(ctx)
}

// Invalidate forces the next Gallery call to reload regardless of TTL.
func (c *Cache) Invalidate() {
	c.generation.Add(1)
}

func (c *Cache) Stats() Stats {
	stats := Stats{
		Reloads:    c.reloads.Load(),
		LoadErrors: c.loadErrors.Load(),
	}
	if snap := c.current.Load(); snap != nil {
		stats.Size = snap.gallery.Len()
		stats.LoadedAt = snap.loadedAt
		stats.Loaded = true
		stats.LastSkipped = snap.skipped
	}
	return stats
}

func (c *Cache) fresh(snap *snapshot) bool {
	if snap == nil {
		return false
	}
	if snap.generation != c.generation.Load() {
		return false
	}
	return c.now().Sub(snap.loadedAt) < c.config.TTL
}

func (c *Cache) galleryOf(snap *snapshot) *domain.Gallery {
	if snap == nil {
		return domain.EmptyGallery
	}
	return snap.gallery
}

// reload coalesces reloads requested at the same generation. A caller never
// joins a load that began before the generation it observed, so a read after
// Invalidate always sees the store as of that invalidation. Waiters whose own
// context ends stop waiting; live waiters retry a load its starter abandoned.
func (c *Cache) reload(ctx context.Context) error {
	key := fmt.Sprintf("%s:%d", reloadKey, c.generation.Load())
	for {
		ch := c.group.DoChan(key, func() (interface{}, error) {
			return nil, c.load(ctx)
		})

		select {
		case res := <-ch:
			if errors.Is(res.Err, errLoadAbandoned) && ctx.Err() == nil {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return domain.ErrCacheLoadFailed.WithError(ctx.Err())
		}
	}
}

func (c *Cache) load(ctx context.Context) error {
	generation := c.generation.Load()
	started := c.now()

	loadCtx, cancel := context.WithTimeout(ctx, c.config.LoadTimeout)
	defer cancel()

	records, err := c.source.LoadEncodings(loadCtx)
	if err != nil {
		if ctx.Err() != nil {
			return abandoned(ctx)
		}
		c.loadErrors.Add(1)
		c.logger.Warn("gallery reload failed, keeping previous snapshot",
			"error", err,
			"stale_size", c.galleryOf(c.current.Load()).Len(),
		)
		return domain.ErrCacheLoadFailed.WithError(err)
	}

	entries, skipped := c.build(records)

	// A cancelled request must not replace the shared snapshot.
	if ctx.Err() != nil {
		return abandoned(ctx)
	}

	next := &snapshot{
		gallery: &domain.Gallery{
			Entries:  entries,
			LoadedAt: started,
		},
		loadedAt:   started,
		generation: generation,
		skipped:    skipped,
	}
	c.publish(next)
	c.reloads.Add(1)

	c.logger.Debug("gallery reloaded",
		"size", len(entries),
		"skipped", skipped,
		"duration_ms", c.now().Sub(started).Milliseconds(),
	)
	return nil
}

func abandoned(ctx context.Context) error {
	return domain.ErrCacheLoadFailed.WithError(fmt.Errorf("%w: %w", errLoadAbandoned, ctx.Err()))
}

// publish never replaces a snapshot with one built before a newer invalidation.
func (c *Cache) publish(next *snapshot) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if cur := c.current.Load(); cur != nil && cur.generation > next.generation {
		return
	}
	c.current.Store(next)
}

func (c *Cache) build(records []domain.EncodingRecord) ([]domain.GalleryEntry, int) {
	entries := make([]domain.GalleryEntry, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if err := c.validate(rec); err != nil {
			skipped++
			c.logger.Warn("skipping enrollment record",
				"identity_id", rec.IdentityID,
				"error", err,
			)
			continue
		}
		entries = append(entries, domain.GalleryEntry{
			IdentityID:  rec.IdentityID,
			DisplayName: rec.DisplayName,
			Metadata:    rec.Metadata,
			Encoding:    rec.Encoding,
		})
	}
	return entries, skipped
}

func (c *Cache) validate(rec domain.EncodingRecord) error {
	switch {
	case rec.Problem != nil:
		return domain.ErrMalformedRecord.WithError(rec.Problem)
	case rec.IdentityID == "":
		return domain.ErrMalformedRecord.WithError(errors.New("missing identity id"))
	case len(rec.Encoding) == 0:
		return domain.ErrMalformedRecord.WithError(errors.New("missing encoding"))
	case c.config.Dimension > 0 && len(rec.Encoding) != c.config.Dimension:
		return domain.ErrMalformedRecord.WithError(
			fmt.Errorf("encoding length %d, want %d", len(rec.Encoding), c.config.Dimension))
	}
	for i, v := range rec.Encoding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.ErrMalformedRecord.WithError(fmt.Errorf("non-finite value at %d", i))
		}
	}
	return nil
}
