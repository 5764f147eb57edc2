package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":         "8080",
				"ENV":          "production",
				"DATABASE_URL": "postgres://localhost/test",
				"DETECTOR":     "rekognition",
				"ENCODER":      "mock",
				"GALLERY_TTL":  "90s",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8080, c.Port)
				assert.Equal(t, "production", c.Environment)
				assert.Equal(t, "postgres://localhost/test", c.DatabaseURL)
				assert.Equal(t, "rekognition", c.Detector)
				assert.Equal(t, "mock", c.Encoder)
				assert.Equal(t, 90*time.Second, c.GalleryTTL)
				assert.True(t, c.IsProduction())
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 3000, c.Port)
				assert.True(t, c.IsDevelopment())
				assert.Equal(t, "deepface", c.Detector)
				assert.Equal(t, "euclidean", c.MatchMetric)
				assert.Zero(t, c.MatchThreshold)
				assert.Equal(t, 128, c.EmbeddingDim)
				assert.Equal(t, 300*time.Second, c.GalleryTTL)
				assert.Equal(t, 10*time.Second, c.GalleryLoadTimeout)
				assert.Zero(t, c.GalleryWarmInterval)
				assert.Empty(t, c.RedisURL)
				assert.Empty(t, c.WebhookURL)
				assert.Equal(t, 5, c.WebhookMaxAttempts)
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "fails on unknown metric",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"MATCH_METRIC": "manhattan",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown detector",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"DETECTOR":     "opencv",
			},
			wantErr: true,
		},
		{
			name: "fails on rekognition encoder",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"ENCODER":      "rekognition",
			},
			wantErr: true,
		},
		{
			name: "fails on negative threshold",
			envVars: map[string]string{
				"DATABASE_URL":    "postgres://localhost/test",
				"MATCH_THRESHOLD": "-0.1",
			},
			wantErr: true,
		},
		{
			name: "fails on webhook without attempts",
			envVars: map[string]string{
				"DATABASE_URL":         "postgres://localhost/test",
				"WEBHOOK_URL":          "https://example.com/hook",
				"WEBHOOK_MAX_ATTEMPTS": "0",
			},
			wantErr: true,
		},
		{
			name: "fails on zero ttl",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"GALLERY_TTL":  "0s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, ok := parseLevel(" WARN ")
	assert.True(t, ok)
	assert.Equal(t, "WARN", lvl.String())

	_, ok = parseLevel("")
	assert.False(t, ok)
}
