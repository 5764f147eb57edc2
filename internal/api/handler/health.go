package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
)

// Check is one readiness dependency (database, face provider).
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type GalleryStats interface {
	Stats() gallery.Stats
}

type HealthHandler struct {
	checks  []Check
	gallery GalleryStats
	logger  *slog.Logger
}

func NewHealthHandler(gallery GalleryStats, logger *slog.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, gallery: gallery, logger: logger}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReadyResponse struct {
	Status          string            `json:"status"`
	Checks          map[string]string `json:"checks,omitempty"`
	KnownFacesCount int               `json:"known_faces_count"`
	Gallery         *gallery.Stats    `json:"gallery,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: "0.1.0",
	})
}

// Ready reports 503 when any dependency is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(h.checks))}

	for _, check := range h.checks {
		if err := check.Ping(c.UserContext()); err != nil {
			h.logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
			resp.Checks[check.Name] = "down"
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[check.Name] = "up"
	}

	if h.gallery != nil {
		stats := h.gallery.Stats()
		resp.Gallery = &stats
		resp.KnownFacesCount = stats.Size
	}

	if resp.Status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
