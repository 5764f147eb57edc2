package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

// isMultipart reports whether the request carries a multipart form.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// imageFromForm reads the "image" file of a multipart request.
func imageFromForm(c *fiber.Ctx, dec *imaging.Decoder) (*domain.Image, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image is required"))
	}
	if file.Size > int64(dec.MaxSize()) {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image too large"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return dec.FromBytes(data)
}

// imageFromRequest accepts a multipart "image" file or a JSON body whose
// "image" field holds base64 data.
func imageFromRequest(c *fiber.Ctx, dec *imaging.Decoder) (*domain.Image, error) {
	if isMultipart(c) {
		return imageFromForm(c, dec)
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := c.BodyParser(&body); err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if body.Image == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image is required"))
	}
	return dec.FromBase64(body.Image)
}
