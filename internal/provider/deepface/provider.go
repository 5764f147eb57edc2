package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels

	// minBoxOverlap is the IoU required to pair a requested box with a face
	// returned by the server.
	minBoxOverlap = 0.3
)

// Provider implements provider.Detector and provider.Encoder using the DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Ping checks that the DeepFace server answers.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Health(ctx)
}

// DetectFaces detects faces in the image
func (p *Provider) DetectFaces(ctx context.Context, img *domain.Image) ([]provider.DetectedFace, error) {
	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(img.Data))
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		confidence := result.FaceConfidence
		if confidence <= 0 {
			confidence = calculateConfidence(float64(result.FacialArea.W * result.FacialArea.H))
		}
		faces = append(faces, provider.DetectedFace{
			Box:        result.FacialArea.Box(),
			Confidence: confidence,
		})
	}

	return faces, nil
}

// ExtractEncodings returns one embedding per requested box. DeepFace always
// runs its own detection, so each box is paired with the returned face it
// overlaps most. A box with no matching face gets a nil encoding.
func (p *Provider) ExtractEncodings(ctx context.Context, img *domain.Image, boxes []domain.BoundingBox) ([]domain.FaceEncoding, error) {
	encodings := make([]domain.FaceEncoding, len(boxes))
	if len(boxes) == 0 {
		return encodings, nil
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(img.Data))
	if err != nil {
		return nil, fmt.Errorf("extract encodings: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("extract encodings: %w", ErrNoFaceInResponse)
	}

	for i, box := range boxes {
		best, bestIoU := -1, 0.0
		for j, result := range resp.Results {
			if iou := box.IoU(result.FacialArea.Box()); iou >= minBoxOverlap && iou > bestIoU {
				best, bestIoU = j, iou
			}
		}
		if best >= 0 && len(resp.Results[best].Embedding) > 0 {
			encodings[i] = domain.FaceEncoding(resp.Results[best].Embedding)
		}
	}

	return encodings, nil
}

// calculateConfidence estimates confidence based on face area when the
// server does not report one.
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	// Scale from 0.7 to 0.99 based on face area
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

var (
	_ provider.Detector = (*Provider)(nil)
	_ provider.Encoder  = (*Provider)(nil)
)
