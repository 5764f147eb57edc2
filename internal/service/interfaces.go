package service

import (
	"context"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type IdentityStore interface {
	Upsert(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	List(ctx context.Context, limit, offset int) ([]domain.Identity, error)
	Delete(ctx context.Context, id string) error
}

// GalleryProvider hands out the current gallery snapshot. A non-nil error
// means the snapshot may be stale; the gallery is still usable.
type GalleryProvider interface {
	Gallery(ctx context.Context) (*domain.Gallery, error)
}

type AttendanceStore interface {
	EnsureSession(ctx context.Context, in domain.SessionInput) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error)
	RecordAttendance(ctx context.Context, sessionID string, at time.Time, results []domain.MatchResult) ([]domain.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error)
	ListByIdentity(ctx context.Context, identityID string) ([]domain.AttendanceRecord, error)
}

type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Broadcaster interface {
	BroadcastAttendance(sessionID string, records []domain.AttendanceRecord, unknownCount int)
}
