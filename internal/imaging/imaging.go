// Package imaging turns uploaded bytes into a domain.Image, whatever the
// transport shape (multipart file, raw body or base64 string).
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const DefaultMaxSize = 10 * 1024 * 1024

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// Decoder validates raw image bytes against a size limit.
type Decoder struct {
	maxSize int
}

func NewDecoder(maxSize int) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Decoder{maxSize: maxSize}
}

func (d *Decoder) MaxSize() int {
	return d.maxSize
}

// FromBytes checks size and format and reads the image dimensions without
// decoding the pixel data.
func (d *Decoder) FromBytes(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}
	if len(data) > d.maxSize {
		return nil, domain.ErrInvalidImage.WithError(
			fmt.Errorf("image too large: %d bytes, max %d", len(data), d.maxSize))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	if !supportedFormats[format] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported format %q", format))
	}

	return &domain.Image{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// FromBase64 accepts plain base64 or a data URL ("data:image/jpeg;base64,...").
func (d *Decoder) FromBase64(encoded string) (*domain.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return nil, domain.ErrInvalidImage.WithError(errors.New("malformed data url"))
		}
		encoded = encoded[idx+1:]
	}
	if encoded == "" {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > d.maxSize+3 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image too large"))
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode base64: %w", err))
	}
	return d.FromBytes(data)
}
