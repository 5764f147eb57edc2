package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// isForeignKeyViolation checks if the error is a foreign key constraint violation
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "23503") ||
		strings.Contains(errMsg, "foreign key")
}

// toVector converts an encoding to the float32 representation stored by pgvector.
func toVector(enc domain.FaceEncoding) *pgvector.Vector {
	if len(enc) == 0 {
		return nil
	}
	floats := make([]float32, len(enc))
	for i, v := range enc {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}

func fromVector(vec *pgvector.Vector) domain.FaceEncoding {
	if vec == nil || vec.Slice() == nil {
		return nil
	}
	enc := make(domain.FaceEncoding, len(vec.Slice()))
	for i, v := range vec.Slice() {
		enc[i] = float64(v)
	}
	return enc
}

// parseVector decodes the text form of a vector column, e.g. "[0.5,0.25]".
func parseVector(text *string) (domain.FaceEncoding, error) {
	if text == nil {
		return nil, nil
	}
	if !strings.HasPrefix(*text, "[") || !strings.HasSuffix(*text, "]") || len(*text) < 2 {
		return nil, fmt.Errorf("decode encoding: unexpected vector text %q", *text)
	}
	var vec pgvector.Vector
	if err := vec.Scan(*text); err != nil {
		return nil, fmt.Errorf("decode encoding: %w", err)
	}
	return fromVector(&vec), nil
}

func metadataOrEmpty(md map[string]string) map[string]string {
	if md == nil {
		return map[string]string{}
	}
	return md
}

// decodeMetadata accepts only flat string objects.
func decodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var md map[string]string
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
