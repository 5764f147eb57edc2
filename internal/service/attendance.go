package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/cache"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type Recognizer interface {
	Recognize(ctx context.Context, img *domain.Image) (*domain.Recognition, error)
}

type AttendanceService struct {
	recognizer   Recognizer
	store        AttendanceStore
	summaries    SummaryCache
	broadcasters []Broadcaster
	audit        audit.Logger
	logger       *slog.Logger
	summaryTTL   time.Duration
	now          func() time.Time
}

func NewAttendanceService(recognizer Recognizer, store AttendanceStore, logger *slog.Logger) *AttendanceService {
	return &AttendanceService{
		recognizer: recognizer,
		store:      store,
		audit:      &audit.NoOpLogger{},
		logger:     logger,
		now:        time.Now,
	}
}

// WithSummaryCache caches session summaries for ttl.
func (s *AttendanceService) WithSummaryCache(c SummaryCache, ttl time.Duration) *AttendanceService {
	s.summaries = c
	s.summaryTTL = ttl
	return s
}

// WithBroadcaster adds a receiver of attendance events. Receivers must not block.
func (s *AttendanceService) WithBroadcaster(b Broadcaster) *AttendanceService {
	s.broadcasters = append(s.broadcasters, b)
	return s
}

func (s *AttendanceService) WithAudit(a audit.Logger) *AttendanceService {
	s.audit = a
	return s
}

// TakeAttendance recognizes the faces in img and marks every known one as
// present in the session, creating the session on first use.
func (s *AttendanceService) TakeAttendance(ctx context.Context, in domain.SessionInput, img *domain.Image) (*domain.AttendanceOutcome, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	session, err := s.store.EnsureSession(ctx, in)
	if err != nil {
		return nil, domain.ErrStoreWriteFailed.WithError(err)
	}

	rec, err := s.recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	records, err := s.store.RecordAttendance(ctx, session.ID, s.now().UTC(), rec.Known())
	if err != nil {
		_ = s.audit.Log(ctx, audit.Event{
			EventType: audit.EventAttendanceMarked,
			SessionID: session.ID,
			Error:     err.Error(),
		})
		return nil, domain.ErrStoreWriteFailed.WithError(err)
	}

	if skipped := unrecorded(rec.Known(), records); len(skipped) > 0 {
		s.logger.WarnContext(ctx, "recognized identities no longer enrolled",
			slog.String("session_id", session.ID),
			slog.Any("identity_ids", skipped),
		)
	}

	s.dropSummary(ctx, session.ID)

	for _, b := range s.broadcasters {
		b.BroadcastAttendance(session.ID, records, rec.UnknownCount)
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType: audit.EventAttendanceMarked,
		SessionID: session.ID,
		Success:   true,
		Metadata: map[string]string{
			"present": strconv.Itoa(len(records)),
			"unknown": strconv.Itoa(rec.UnknownCount),
		},
	})

	s.logger.InfoContext(ctx, "attendance recorded",
		slog.String("session_id", session.ID),
		slog.Int("present", len(records)),
		slog.Int("unknown", rec.UnknownCount),
		slog.Bool("stale_gallery", rec.Stale),
	)

	return &domain.AttendanceOutcome{
		Session:      session,
		Recognition:  rec,
		Recorded:     records,
		UnknownCount: rec.UnknownCount,
	}, nil
}

func (s *AttendanceService) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error) {
	return s.store.ListSessions(ctx, limit, offset)
}

// SessionSummary returns the session with everyone marked present in it.
func (s *AttendanceService) SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	key := summaryKey(sessionID)

	if s.summaries != nil {
		var cached domain.SessionSummary
		err := s.summaries.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheExpired) {
			s.logger.WarnContext(ctx, "session summary cache read failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
		}
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: list attendance: %w", sessionID, err)
	}

	summary := &domain.SessionSummary{
		Session: session,
		Present: len(records),
		Records: records,
	}

	if s.summaries != nil {
		if err := s.summaries.SetJSON(ctx, key, summary, s.summaryTTL); err != nil {
			s.logger.WarnContext(ctx, "session summary cache write failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
		}
	}

	return summary, nil
}

// IdentityAttendance lists the sessions an identity was present in, newest first.
func (s *AttendanceService) IdentityAttendance(ctx context.Context, identityID string) ([]domain.AttendanceRecord, error) {
	return s.store.ListByIdentity(ctx, identityID)
}

func (s *AttendanceService) dropSummary(ctx context.Context, sessionID string) {
	if s.summaries == nil {
		return
	}
	if err := s.summaries.Delete(ctx, summaryKey(sessionID)); err != nil {
		s.logger.WarnContext(ctx, "failed to drop cached session summary",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}

// unrecorded lists accepted matches the store skipped.
func unrecorded(known []domain.MatchResult, records []domain.AttendanceRecord) []string {
	stored := make(map[string]struct{}, len(records))
	for _, r := range records {
		stored[r.IdentityID] = struct{}{}
	}
	var missing []string
	for _, m := range known {
		if _, ok := stored[m.IdentityID]; !ok {
			missing = append(missing, m.IdentityID)
			stored[m.IdentityID] = struct{}{}
		}
	}
	return missing
}

func summaryKey(sessionID string) string {
	return "session-summary:" + sessionID
}
