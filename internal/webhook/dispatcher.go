package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const enqueueTimeout = 2 * time.Second

// DB is the subset of *pgxpool.Pool used by the queue.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Dispatcher queues events in webhook_deliveries for the Worker to send.
type Dispatcher struct {
	db          DB
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

func NewDispatcher(db DB, logger *slog.Logger, maxAttempts int) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Dispatcher{
		db:          db,
		logger:      logger.With("component", "webhook_dispatcher"),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Enqueue stores the event for delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, eventType, sessionID string, data any) error {
	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	query := `
		INSERT INTO webhook_deliveries (id, event_type, payload, max_attempts, status, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	if _, err := d.db.Exec(ctx, query, event.ID, eventType, payload, d.maxAttempts, StatusPending); err != nil {
		return fmt.Errorf("enqueue webhook: %w", err)
	}
	return nil
}

// BroadcastAttendance queues an attendance.marked event. It outlives the
// request that triggered it and only logs failures.
func (d *Dispatcher) BroadcastAttendance(sessionID string, records []domain.AttendanceRecord, unknownCount int) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	data := AttendanceData{Present: records, UnknownCount: unknownCount}
	if err := d.Enqueue(ctx, EventAttendanceMarked, sessionID, data); err != nil {
		d.logger.Warn("failed to queue attendance webhook",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}
