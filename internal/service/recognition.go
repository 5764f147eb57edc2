package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const staleGalleryWarning = "gallery reload failed; matched against the last loaded gallery"

type RecognitionService struct {
	detector     provider.Detector
	encoder      provider.Encoder
	gallery      GalleryProvider
	matcher      *matcher.Matcher
	audit        audit.Logger
	logger       *slog.Logger
	providerName string
}

func NewRecognitionService(
	detector provider.Detector,
	encoder provider.Encoder,
	gallery GalleryProvider,
	m *matcher.Matcher,
	logger *slog.Logger,
) *RecognitionService {
	return &RecognitionService{
		detector: detector,
		encoder:  encoder,
		gallery:  gallery,
		matcher:  m,
		audit:    &audit.NoOpLogger{},
		logger:   logger,
	}
}

func (s *RecognitionService) WithAudit(a audit.Logger, providerName string) *RecognitionService {
	s.audit = a
	s.providerName = providerName
	return s
}

// Recognize identifies every face in img. Results follow detection order and
// the same identity may appear more than once.
func (s *RecognitionService) Recognize(ctx context.Context, img *domain.Image) (*domain.Recognition, error) {
	start := time.Now()

	faces, err := s.detector.DetectFaces(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("recognize: detect faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFacesDetected
	}

	boxes := provider.Boxes(faces)
	probes, err := s.encoder.ExtractEncodings(ctx, img, boxes)
	if err != nil {
		return nil, fmt.Errorf("recognize: extract encodings: %w", err)
	}
	if len(probes) != len(boxes) {
		return nil, domain.ErrInvalidEncoding.WithError(
			fmt.Errorf("encoder returned %d encodings for %d faces", len(probes), len(boxes)))
	}

	rec := &domain.Recognition{FacesDetected: len(faces)}

	g, err := s.gallery.Gallery(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "recognition using stale gallery",
			slog.Int("gallery_size", g.Len()),
			slog.Any("error", err),
		)
		rec.Stale = true
		rec.Warning = staleGalleryWarning
	}
	if g.IsEmpty() {
		if err != nil {
			return nil, domain.ErrNoKnownFaces.WithError(err)
		}
		return nil, domain.ErrNoKnownFaces
	}

	rec.Results = s.matcher.MatchAll(probes, g)
	for i := range rec.Results {
		rec.Results[i].Box = boxes[i]
		if !rec.Results[i].IsKnown() {
			rec.UnknownCount++
		}
	}
	rec.GallerySize = g.Len()
	rec.GalleryLoadedAt = g.LoadedAt

	s.logger.DebugContext(ctx, "recognition completed",
		slog.Int("faces", rec.FacesDetected),
		slog.Int("unknown", rec.UnknownCount),
		slog.Int("gallery_size", rec.GallerySize),
		slog.Duration("elapsed", time.Since(start)),
	)

	_ = s.audit.Log(ctx, audit.Event{
		EventType: audit.EventFacesRecognized,
		Provider:  s.providerName,
		Success:   true,
		Metadata: map[string]string{
			"faces":   strconv.Itoa(rec.FacesDetected),
			"unknown": strconv.Itoa(rec.UnknownCount),
			"stale":   strconv.FormatBool(rec.Stale),
		},
	})

	return rec, nil
}
