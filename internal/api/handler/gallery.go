package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
)

type GalleryRefresher interface {
	Refresh(ctx context.Context) error
	Stats() gallery.Stats
}

type GalleryHandler struct {
	cache  GalleryRefresher
	logger *slog.Logger
}

func NewGalleryHandler(cache GalleryRefresher, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{cache: cache, logger: logger}
}

// Refresh POST /v1/gallery/refresh - reload the enrolled encodings now
func (h *GalleryHandler) Refresh(c *fiber.Ctx) error {
	if err := h.cache.Refresh(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(h.cache.Stats())
}

// Stats GET /v1/gallery - size and age of the loaded gallery
func (h *GalleryHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Stats())
}
