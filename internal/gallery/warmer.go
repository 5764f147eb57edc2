package gallery

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Loader is satisfied by *Cache.
type Loader interface {
	Gallery(ctx context.Context) (*domain.Gallery, error)
}

// Warmer keeps the gallery loaded in the background so recognition requests
// rarely pay for a reload.
type Warmer struct {
	cache    Loader
	logger   *slog.Logger
	interval time.Duration
}

// NewWarmer creates a new gallery warm-up worker
func NewWarmer(cache Loader, logger *slog.Logger, interval time.Duration) *Warmer {
	return &Warmer{
		cache:    cache,
		logger:   logger,
		interval: interval,
	}
}

// Run loads the gallery once, then on every tick. A tick only reloads when the
// snapshot is stale, so invalidations are picked up within one interval.
func (w *Warmer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("gallery warmer started", "interval", w.interval)
	w.warm(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("gallery warmer stopped")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *Warmer) warm(ctx context.Context) {
	g, err := w.cache.Gallery(ctx)
	if err != nil {
		w.logger.Warn("gallery warm-up failed", "error", err, "size", g.Len())
		return
	}
	w.logger.Debug("gallery warm", "size", g.Len())
}
