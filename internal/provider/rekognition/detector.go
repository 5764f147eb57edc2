package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Detector implements provider.Detector with the Rekognition DetectFaces API.
// Rekognition does not expose embeddings, so it is paired with another Encoder.
type Detector struct {
	api    API
	config Config
}

// NewDetector creates a Detector with a client built from the default AWS
// credential chain.
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(api, cfg), nil
}

func NewDetectorWithAPI(api API, cfg Config) *Detector {
	return &Detector{api: api, config: cfg}
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(img *domain.Image) error {
	size := img.Size()
	if size < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, size, minImageSize)
	}
	if size > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, size, maxImageSize)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: unknown image dimensions", ErrInvalidImage)
	}
	return nil
}

// DetectFaces returns faces in the order Rekognition reports them. Rekognition
// boxes are ratios of the image size and are converted to pixels here.
// Returns an empty slice if no faces are detected (not an error)
func (d *Detector) DetectFaces(ctx context.Context, img *domain.Image) ([]provider.DetectedFace, error) {
	if err := validateImage(img); err != nil {
		return nil, err
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img.Data},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", parseAPIError(err))
	}

	w, h := float64(img.Width), float64(img.Height)
	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		confidence := float32(0)
		if detail.Confidence != nil {
			confidence = *detail.Confidence
		}
		if confidence < d.config.MinConfidence {
			continue
		}

		bb := detail.BoundingBox
		faces = append(faces, provider.DetectedFace{
			Box: domain.BoundingBox{
				X:      float64(deref(bb.Left)) * w,
				Y:      float64(deref(bb.Top)) * h,
				Width:  float64(deref(bb.Width)) * w,
				Height: float64(deref(bb.Height)) * h,
			},
			Confidence: float64(confidence) / 100,
		})
	}

	return faces, nil
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}

var _ provider.Detector = (*Detector)(nil)
