package domain

import (
	"time"
)

// FaceEncoding é o vetor de características de uma face. Tratado como imutável
// depois de criado.
type FaceEncoding []float64

// Identity representa uma pessoa cadastrada e sua codificação facial
type Identity struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Encoding    FaceEncoding      `json:"-"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// EnrollRequest carries everything needed to register or re-register an identity.
type EnrollRequest struct {
	IdentityID  string            `validate:"required,max=128"`
	DisplayName string            `validate:"required,max=256"`
	Metadata    map[string]string `validate:"max=32"`
	Image       *Image            `validate:"required"`
}

// EncodingRecord is one row handed out by the store during a gallery reload.
// Problem is set when the row could not be decoded; such rows are skipped.
type EncodingRecord struct {
	IdentityID  string
	DisplayName string
	Metadata    map[string]string
	Encoding    FaceEncoding
	Problem     error
}

// BoundingBox is a face region in pixel coordinates of the source image.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area, zero for degenerate boxes.
func (b BoundingBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// IoU returns the intersection-over-union of two boxes.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	x1 := max(b.X, o.X)
	y1 := max(b.Y, o.Y)
	x2 := min(b.X+b.Width, o.X+o.Width)
	y2 := min(b.Y+b.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
