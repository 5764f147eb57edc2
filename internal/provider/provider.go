package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Detector localiza faces em uma imagem
type Detector interface {
	// DetectFaces retorna uma caixa por face, na ordem de detecção
	DetectFaces(ctx context.Context, img *domain.Image) ([]DetectedFace, error)
}

// Encoder extrai codificações faciais para regiões já detectadas
type Encoder interface {
	// ExtractEncodings retorna exatamente uma codificação por caixa, na mesma ordem
	ExtractEncodings(ctx context.Context, img *domain.Image, boxes []domain.BoundingBox) ([]domain.FaceEncoding, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	Box        domain.BoundingBox `json:"bounding_box"`
	Confidence float64            `json:"confidence"`
}

// Boxes returns the bounding boxes of faces in detection order.
func Boxes(faces []DetectedFace) []domain.BoundingBox {
	boxes := make([]domain.BoundingBox, len(faces))
	for i, f := range faces {
		boxes[i] = f.Box
	}
	return boxes
}
