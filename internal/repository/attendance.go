package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// EnsureSession creates the session if it does not exist and returns the
// stored row. Details of an existing session are left unchanged.
func (r *AttendanceRepository) EnsureSession(ctx context.Context, in domain.SessionInput) (*domain.Session, error) {
	query := `
		INSERT INTO attendance_sessions (id, name, course, location, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, name, course, location, started_at, created_at
	`

	name := in.Name
	if name == "" {
		name = in.ID
	}
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	var s domain.Session
	err := r.pool.QueryRow(ctx, query, in.ID, name, in.Course, in.Location, startedAt).Scan(
		&s.ID, &s.Name, &s.Course, &s.Location, &s.StartedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure session %s: %w", in.ID, err)
	}

	return &s, nil
}

func (r *AttendanceRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, name, course, location, started_at, created_at
		FROM attendance_sessions
		WHERE id = $1
	`

	var s domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Course, &s.Location, &s.StartedAt, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

func (r *AttendanceRepository) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error) {
	limit, offset = pageBounds(limit, offset)

	query := `
		SELECT id, name, course, location, started_at, created_at
		FROM attendance_sessions
		ORDER BY started_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Name, &s.Course, &s.Location, &s.StartedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// RecordAttendance marks every accepted match as present in one transaction.
// Unknown results are not stored. Recording an identity twice for the same
// session keeps a single row with the highest confidence. Identities deleted
// since the gallery was loaded are skipped and left out of the returned
// records; they never abort the rest of the batch.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, sessionID string, at time.Time, results []domain.MatchResult) ([]domain.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance_records (id, session_id, identity_id, status, confidence, recorded_at)
		SELECT $1::uuid, $2::varchar, $3::varchar, $4::varchar, $5::double precision, $6::timestamptz
		WHERE EXISTS (SELECT 1 FROM identities WHERE id = $3::varchar)
		ON CONFLICT (session_id, identity_id) DO UPDATE SET
			confidence = GREATEST(attendance_records.confidence, EXCLUDED.confidence)
		RETURNING id, confidence, recorded_at
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	records := make([]domain.AttendanceRecord, 0, len(results))
	for _, res := range results {
		if !res.IsKnown() {
			continue
		}

		rec := domain.AttendanceRecord{
			SessionID:   sessionID,
			IdentityID:  res.IdentityID,
			DisplayName: res.DisplayName,
			Status:      domain.AttendanceStatusPresent,
		}
		err := tx.QueryRow(ctx, query,
			uuid.New(), sessionID, res.IdentityID, rec.Status, res.Confidence, at,
		).Scan(&rec.ID, &rec.Confidence, &rec.RecordedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("record attendance for %s: %w", res.IdentityID, domain.ErrIdentityNotFound)
			}
			return nil, fmt.Errorf("record attendance for %s: %w", res.IdentityID, err)
		}
		records = append(records, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit attendance: %w", err)
	}

	return records, nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT ar.id, ar.session_id, ar.identity_id, i.display_name, ar.status, ar.confidence, ar.recorded_at
		FROM attendance_records ar
		INNER JOIN identities i ON i.id = ar.identity_id
		WHERE ar.session_id = $1
		ORDER BY ar.recorded_at, ar.identity_id
	`
	return r.listRecords(ctx, query, sessionID)
}

func (r *AttendanceRepository) ListByIdentity(ctx context.Context, identityID string) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT ar.id, ar.session_id, ar.identity_id, i.display_name, ar.status, ar.confidence, ar.recorded_at
		FROM attendance_records ar
		INNER JOIN identities i ON i.id = ar.identity_id
		WHERE ar.identity_id = $1
		ORDER BY ar.recorded_at DESC
	`
	return r.listRecords(ctx, query, identityID)
}

func (r *AttendanceRepository) listRecords(ctx context.Context, query string, arg string) ([]domain.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AttendanceRecord, 0)
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.IdentityID, &rec.DisplayName,
			&rec.Status, &rec.Confidence, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	return records, nil
}
