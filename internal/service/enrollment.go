package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	defaultNotifyTimeout = 2 * time.Second
	searchPageSize       = 500
)

type EnrollmentService struct {
	detector      provider.Detector
	encoder       provider.Encoder
	store         IdentityStore
	cache         gallery.Invalidator
	notifier      gallery.Notifier
	audit         audit.Logger
	logger        *slog.Logger
	dimension     int
	providerName  string
	notifyTimeout time.Duration
}

func NewEnrollmentService(
	detector provider.Detector,
	encoder provider.Encoder,
	store IdentityStore,
	cache gallery.Invalidator,
	logger *slog.Logger,
	dimension int,
) *EnrollmentService {
	return &EnrollmentService{
		detector:      detector,
		encoder:       encoder,
		store:         store,
		cache:         cache,
		notifier:      gallery.NopNotifier{},
		audit:         &audit.NoOpLogger{},
		logger:        logger,
		dimension:     dimension,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// WithNotifier tells other replicas to drop their gallery after each write.
func (s *EnrollmentService) WithNotifier(n gallery.Notifier) *EnrollmentService {
	s.notifier = n
	return s
}

func (s *EnrollmentService) WithAudit(a audit.Logger, providerName string) *EnrollmentService {
	s.audit = a
	s.providerName = providerName
	return s
}

// Enroll registers the single face in the request image under IdentityID,
// replacing any previous encoding for that id.
func (s *EnrollmentService) Enroll(ctx context.Context, req domain.EnrollRequest) (*domain.Identity, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	faces, err := s.detector.DetectFaces(ctx, req.Image)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: detect faces: %w", req.IdentityID, err)
	}

	switch {
	case len(faces) == 0:
		return nil, domain.ErrNoFaceDetected
	case len(faces) > 1:
		return nil, domain.ErrAmbiguousFace
	}

	encodings, err := s.encoder.ExtractEncodings(ctx, req.Image, provider.Boxes(faces))
	if err != nil {
		return nil, fmt.Errorf("enroll %s: extract encoding: %w", req.IdentityID, err)
	}
	if len(encodings) != 1 {
		return nil, domain.ErrInvalidEncoding.WithError(
			fmt.Errorf("encoder returned %d encodings for one face", len(encodings)))
	}
	if encodings[0] == nil {
		return nil, domain.ErrNoFaceDetected.WithError(errors.New("face could not be encoded"))
	}
	if err := s.checkEncoding(encodings[0]); err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		ID:          req.IdentityID,
		DisplayName: req.DisplayName,
		Encoding:    slices.Clone(encodings[0]),
		Metadata:    req.Metadata,
	}

	err = s.store.Upsert(ctx, identity)
	// a write interrupted by cancellation may still have committed
	if err == nil || ctx.Err() != nil {
		defer s.afterWrite(ctx, audit.EventIdentityEnrolled, req.IdentityID, err)
	}
	if err != nil {
		return nil, domain.ErrStoreWriteFailed.WithError(err)
	}

	s.logger.InfoContext(ctx, "identity enrolled",
		slog.String("identity_id", identity.ID),
		slog.Float64("detection_confidence", faces[0].Confidence),
	)

	return identity, nil
}

// Delete removes the identity and its attendance history.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return err
	}
	if err == nil || ctx.Err() != nil {
		defer s.afterWrite(ctx, audit.EventIdentityDeleted, id, err)
	}
	if err != nil {
		return domain.ErrStoreWriteFailed.WithError(err)
	}

	s.logger.InfoContext(ctx, "identity deleted", slog.String("identity_id", id))
	return nil
}

func (s *EnrollmentService) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.store.GetByID(ctx, id)
}

// List pages through identities. A non-empty query keeps only those whose
// display name contains it, ignoring case and accents.
func (s *EnrollmentService) List(ctx context.Context, query string, limit, offset int) ([]domain.Identity, error) {
	query = normalizeName(strings.TrimSpace(query))
	if query == "" {
		return s.store.List(ctx, limit, offset)
	}

	matched := make([]domain.Identity, 0)
	for page := 0; ; page += searchPageSize {
		batch, err := s.store.List(ctx, searchPageSize, page)
		if err != nil {
			return nil, err
		}
		for _, identity := range batch {
			if strings.Contains(normalizeName(identity.DisplayName), query) {
				matched = append(matched, identity)
			}
		}
		if len(batch) < searchPageSize {
			break
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Identity{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *EnrollmentService) checkEncoding(enc domain.FaceEncoding) error {
	if len(enc) != s.dimension {
		return domain.ErrInvalidEncoding.WithError(
			fmt.Errorf("got %d dimensions, want %d", len(enc), s.dimension))
	}
	for i, v := range enc {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.ErrInvalidEncoding.WithError(fmt.Errorf("non-finite value at index %d", i))
		}
	}
	return nil
}

// afterWrite runs once the store may have changed. It uses a context detached
// from the request so a cancelled caller still invalidates every replica.
func (s *EnrollmentService) afterWrite(ctx context.Context, event audit.EventType, identityID string, writeErr error) {
	s.cache.Invalidate()

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(notifyCtx); err != nil {
		s.logger.WarnContext(ctx, "failed to notify gallery invalidation",
			slog.String("identity_id", identityID),
			slog.Any("error", err),
		)
	}

	ev := audit.Event{
		EventType:  event,
		IdentityID: identityID,
		Provider:   s.providerName,
		Success:    writeErr == nil,
		Metadata:   map[string]string{"dimension": strconv.Itoa(s.dimension)},
	}
	if writeErr != nil {
		ev.Error = writeErr.Error()
	}
	_ = s.audit.Log(notifyCtx, ev)
}

func normalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, name)
	if err != nil {
		result = name
	}
	return strings.ToLower(result)
}
