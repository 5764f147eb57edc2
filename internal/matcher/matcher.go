// Package matcher decides which enrolled identity, if any, a probe encoding
// belongs to.
package matcher

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Matcher runs nearest-neighbour search with an acceptance threshold.
type Matcher struct {
	metric    Metric
	threshold float64
}

// New returns a Matcher. A zero threshold selects the metric default.
func New(metric Metric, threshold float64) (*Matcher, error) {
	if metric == nil {
		metric = Euclidean{}
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("invalid threshold %v", threshold)
	}
	if threshold == 0 {
		threshold = DefaultThreshold(metric.Name())
	}
	return &Matcher{metric: metric, threshold: threshold}, nil
}

func (m *Matcher) Threshold() float64 { return m.threshold }
func (m *Matcher) Metric() Metric     { return m.metric }

// Match compares probe against every entry and accepts the closest one when
// its distance is strictly below the threshold. Ties keep the earliest entry.
// An empty gallery yields unknown without computing any distance. Distance
// stays 0 when no entry was comparable.
func (m *Matcher) Match(probe domain.FaceEncoding, gallery *domain.Gallery) domain.MatchResult {
	result := domain.MatchResult{IdentityID: domain.UnknownIdentity}
	if gallery.IsEmpty() {
		return result
	}

	best := -1
	bestDistance := math.Inf(1)
	for i := range gallery.Entries {
		d := m.metric.Distance(probe, gallery.Entries[i].Encoding)
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}
	if best < 0 {
		return result
	}

	result.Distance = bestDistance
	if bestDistance < m.threshold {
		entry := gallery.Entries[best]
		result.IdentityID = entry.IdentityID
		result.DisplayName = entry.DisplayName
		result.Confidence = clamp(1-bestDistance, 0, 1)
	}
	return result
}

// MatchAll matches every probe independently against the same gallery. The
// result at index i belongs to probes[i]; identities are not deduplicated.
func (m *Matcher) MatchAll(probes []domain.FaceEncoding, gallery *domain.Gallery) []domain.MatchResult {
	results := make([]domain.MatchResult, len(probes))
	for i, probe := range probes {
		results[i] = m.Match(probe, gallery)
		results[i].ProbeIndex = i
	}
	return results
}
