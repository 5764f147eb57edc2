package face

import (
	"context"
	"strings"
	"testing"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/rekognition"
)

func TestNewProviders_DeepFace(t *testing.T) {
	tests := []struct {
		name     string
		detector string
		encoder  string
	}{
		{name: "explicit deepface", detector: "deepface", encoder: "deepface"},
		{name: "empty values default to deepface", detector: "", encoder: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Detector:     tt.detector,
				Encoder:      tt.encoder,
				DeepFaceURL:  "http://custom-host:8080",
				EmbeddingDim: 128,
			}

			p, err := NewProviders(context.Background(), cfg)
			if err != nil {
				t.Fatalf("NewProviders() error = %v", err)
			}

			det, ok := p.Detector.(*deepface.Provider)
			if !ok {
				t.Fatalf("Detector type = %T, want *deepface.Provider", p.Detector)
			}
			if enc, ok := p.Encoder.(*deepface.Provider); !ok || enc != det {
				t.Errorf("Encoder should share the detector's DeepFace client, got %T", p.Encoder)
			}
			if len(p.Pingers) != 1 {
				t.Errorf("Pingers = %d, want 1", len(p.Pingers))
			}
			if p.Name != "deepface" {
				t.Errorf("Name = %q, want deepface", p.Name)
			}
		})
	}
}

func TestNewProviders_Mock(t *testing.T) {
	cfg := &config.Config{Detector: "mock", Encoder: "mock", EmbeddingDim: 64}

	p, err := NewProviders(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProviders() error = %v", err)
	}
	if _, ok := p.Detector.(*mock.Provider); !ok {
		t.Errorf("Detector type = %T, want *mock.Provider", p.Detector)
	}
	if _, ok := p.Encoder.(*mock.Provider); !ok {
		t.Errorf("Encoder type = %T, want *mock.Provider", p.Encoder)
	}
	if len(p.Pingers) != 0 {
		t.Errorf("mock providers need no readiness check")
	}
}

func TestNewProviders_Rekognition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Rekognition test in short mode (requires AWS credentials)")
	}

	cfg := &config.Config{
		Detector:  "rekognition",
		Encoder:   "deepface",
		AWSRegion: "us-east-1",
	}

	p, err := NewProviders(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping Rekognition test (likely missing AWS credentials): %v", err)
	}

	if _, ok := p.Detector.(*rekognition.Detector); !ok {
		t.Errorf("Detector type = %T, want *rekognition.Detector", p.Detector)
	}
	if p.Name != "rekognition+deepface" {
		t.Errorf("Name = %q, want rekognition+deepface", p.Name)
	}
}

func TestNewProviders_Unknown(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr string
	}{
		{
			name:    "unknown detector",
			cfg:     &config.Config{Detector: "opencv"},
			wantErr: "unknown detector: opencv",
		},
		{
			name:    "rekognition cannot encode",
			cfg:     &config.Config{Detector: "mock", Encoder: "rekognition"},
			wantErr: "unknown encoder: rekognition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProviders(context.Background(), tt.cfg)
			if err == nil {
				t.Fatal("NewProviders() expected error, got nil")
			}
			if !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want prefix %q", err, tt.wantErr)
			}
		})
	}
}

func TestProviderType_Constants(t *testing.T) {
	if ProviderTypeDeepFace != "deepface" {
		t.Errorf("ProviderTypeDeepFace = %q, want %q", ProviderTypeDeepFace, "deepface")
	}
	if ProviderTypeRekognition != "rekognition" {
		t.Errorf("ProviderTypeRekognition = %q, want %q", ProviderTypeRekognition, "rekognition")
	}
	if ProviderTypeMock != "mock" {
		t.Errorf("ProviderTypeMock = %q, want %q", ProviderTypeMock, "mock")
	}
}
