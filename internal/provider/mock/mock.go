package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const minImageSize = 1000

// Provider implementa provider.Detector e provider.Encoder para testes e
// desenvolvimento. Sempre detecta uma face central e gera codificações
// determinísticas a partir do hash da imagem.
type Provider struct {
	dim int
}

// New cria uma nova instância do MockProvider
func New(dim int) *Provider {
	if dim <= 0 {
		dim = 128
	}
	return &Provider{dim: dim}
}

// DetectFaces simula detecção de uma face ocupando o centro da imagem
func (p *Provider) DetectFaces(ctx context.Context, img *domain.Image) ([]provider.DetectedFace, error) {
	if img.Size() < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	w, h := float64(img.Width), float64(img.Height)
	if w == 0 || h == 0 {
		w, h = 1, 1
	}

	return []provider.DetectedFace{
		{
			Box: domain.BoundingBox{
				X:      0.1 * w,
				Y:      0.1 * h,
				Width:  0.8 * w,
				Height: 0.8 * h,
			},
			Confidence: 0.99,
		},
	}, nil
}

// ExtractEncodings gera uma codificação por caixa, derivada da imagem e da caixa
func (p *Provider) ExtractEncodings(ctx context.Context, img *domain.Image, boxes []domain.BoundingBox) ([]domain.FaceEncoding, error) {
	if img.Size() < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract encodings: %w", err)
	}

	encodings := make([]domain.FaceEncoding, len(boxes))
	for i, box := range boxes {
		encodings[i] = generateEncoding(img.Data, box, p.dim)
	}
	return encodings, nil
}

// generateEncoding gera vetor unitário determinístico baseado no hash da imagem
func generateEncoding(data []byte, box domain.BoundingBox, dim int) domain.FaceEncoding {
	h := sha256.New()
	h.Write(data)
	var buf [8]byte
	for _, v := range []float64{box.X, box.Y, box.Width, box.Height} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	hash := h.Sum(nil)

	encoding := make(domain.FaceEncoding, dim)
	for i := 0; i < dim; i++ {
		encoding[i] = (float64(hash[i%len(hash)])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range encoding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return encoding
	}

	for i := range encoding {
		encoding[i] /= norm
	}
	return encoding
}

var (
	_ provider.Detector = (*Provider)(nil)
	_ provider.Encoder  = (*Provider)(nil)
)
