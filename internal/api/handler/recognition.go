package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

type RecognitionService interface {
	Recognize(ctx context.Context, img *domain.Image) (*domain.Recognition, error)
}

type RecognitionHandler struct {
	service RecognitionService
	decoder *imaging.Decoder
	logger  *slog.Logger
}

func NewRecognitionHandler(service RecognitionService, decoder *imaging.Decoder, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{service: service, decoder: decoder, logger: logger}
}

// Recognize POST /v1/recognize - identify every face in the image
func (h *RecognitionHandler) Recognize(c *fiber.Ctx) error {
	img, err := imageFromRequest(c, h.decoder)
	if err != nil {
		return err
	}

	rec, err := h.service.Recognize(c.UserContext(), img)
	if err != nil {
		return err
	}

	return c.JSON(rec)
}
