package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/rekognition"
)

// ProviderType defines supported face recognition provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace provider (self-hosted)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is AWS Rekognition; it only detects faces
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is a deterministic in-process provider for local runs
	ProviderTypeMock ProviderType = "mock"
)

// Providers is the detector/encoder pair used by the services.
type Providers struct {
	Detector provider.Detector
	Encoder  provider.Encoder
	// Name identifies the pair in audit events, e.g. "rekognition+deepface".
	Name string
	// Pingers are checked by the readiness probe.
	Pingers []Pinger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewProviders builds the detector and encoder named by DETECTOR and ENCODER.
// When both are DeepFace the same client serves both roles.
//
// Environment variables:
//   - DETECTOR: "deepface", "rekognition" or "mock" (default: "deepface")
//   - ENCODER: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, PROVIDER_TIMEOUT: DeepFace client settings
//   - AWS_REGION plus the AWS SDK credential chain for Rekognition
func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	p := &Providers{}

	var df *deepface.Provider
	deepFace := func() *deepface.Provider {
		if df == nil {
			df = createDeepFaceProvider(cfg)
			p.Pingers = append(p.Pingers, df)
		}
		return df
	}

	switch ProviderType(cfg.Detector) {
	case ProviderTypeDeepFace, "":
		p.Detector = deepFace()
	case ProviderTypeRekognition:
		det, err := createRekognitionDetector(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.Detector = det
	case ProviderTypeMock:
		p.Detector = mock.New(cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown detector: %s (supported: %s, %s, %s)",
			cfg.Detector, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}

	switch ProviderType(cfg.Encoder) {
	case ProviderTypeDeepFace, "":
		p.Encoder = deepFace()
	case ProviderTypeMock:
		p.Encoder = mock.New(cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown encoder: %s (supported: %s, %s)",
			cfg.Encoder, ProviderTypeDeepFace, ProviderTypeMock)
	}

	p.Name = providerName(cfg)
	return p, nil
}

func providerName(cfg *config.Config) string {
	det, enc := cfg.Detector, cfg.Encoder
	if det == "" {
		det = string(ProviderTypeDeepFace)
	}
	if enc == "" {
		enc = string(ProviderTypeDeepFace)
	}
	if det == enc {
		return det
	}
	return det + "+" + enc
}

// createRekognitionDetector creates an AWS Rekognition detector instance
func createRekognitionDetector(ctx context.Context, cfg *config.Config) (*rekognition.Detector, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	det, err := rekognition.NewDetector(ctx, rekogConfig)
	if err != nil {
		return nil, fmt.Errorf("create rekognition detector: %w", err)
	}

	return det, nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.ProviderTimeout > 0 {
		deepfaceConfig.Timeout = cfg.ProviderTimeout
	}

	return deepface.NewProvider(deepfaceConfig)
}
