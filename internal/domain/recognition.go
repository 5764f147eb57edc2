package domain

import "time"

// MatchResult is the outcome of matching one probe encoding.
type MatchResult struct {
	ProbeIndex  int         `json:"probe_index"`
	IdentityID  string      `json:"identity_id"`
	DisplayName string      `json:"display_name,omitempty"`
	Confidence  float64     `json:"confidence"`
	Distance    float64     `json:"distance"`
	Box         BoundingBox `json:"face_location"`
}

func (r MatchResult) IsKnown() bool {
	return r.IdentityID != UnknownIdentity
}

// Recognition is the outcome of one recognition pass over an image.
type Recognition struct {
	Results         []MatchResult `json:"results"`
	FacesDetected   int           `json:"faces_detected"`
	UnknownCount    int           `json:"unknown_count"`
	GallerySize     int           `json:"gallery_size"`
	GalleryLoadedAt time.Time     `json:"gallery_loaded_at"`
	Stale           bool          `json:"stale"`
	Warning         string        `json:"warning,omitempty"`
}

// Known returns the accepted matches in detection order.
func (r *Recognition) Known() []MatchResult {
	known := make([]MatchResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res.IsKnown() {
			known = append(known, res)
		}
	}
	return known
}
