package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Upsert stores the identity, replacing any previous record with the same id.
func (r *IdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, display_name, encoding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			encoding = EXCLUDED.encoding,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.DisplayName,
		toVector(identity.Encoding),
		metadataOrEmpty(identity.Metadata),
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", identity.ID, err)
	}

	return nil
}

// LoadEncodings returns every identity with an encoding, ordered by id. Rows
// whose encoding or metadata cannot be decoded are returned with Problem set.
// The vector is read as text so one bad value cannot stop the scan.
func (r *IdentityRepository) LoadEncodings(ctx context.Context) ([]domain.EncodingRecord, error) {
	query := `
		SELECT id, display_name, encoding::text, metadata
		FROM identities
		WHERE encoding IS NOT NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load encodings: %w", err)
	}
	defer rows.Close()

	var records []domain.EncodingRecord
	for rows.Next() {
		var rec domain.EncodingRecord
		var encoding *string
		var metadata []byte

		if err := rows.Scan(&rec.IdentityID, &rec.DisplayName, &encoding, &metadata); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}

		var encErr, mdErr error
		rec.Encoding, encErr = parseVector(encoding)
		rec.Metadata, mdErr = decodeMetadata(metadata)
		rec.Problem = errors.Join(encErr, mdErr)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", err)
	}

	return records, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := `
		SELECT id, display_name, encoding, metadata, created_at, updated_at
		FROM identities
		WHERE id = $1
	`

	var identity domain.Identity
	var encoding *pgvector.Vector
	var metadata []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&identity.ID,
		&identity.DisplayName,
		&encoding,
		&metadata,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	identity.Encoding = fromVector(encoding)
	if identity.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, fmt.Errorf("get identity %s: %w", id, err)
	}

	return &identity, nil
}

// List returns identities without their encodings, ordered by display name.
func (r *IdentityRepository) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	limit, offset = pageBounds(limit, offset)

	query := `
		SELECT id, display_name, metadata, created_at, updated_at
		FROM identities
		ORDER BY display_name, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var identity domain.Identity
		var metadata []byte
		if err := rows.Scan(&identity.ID, &identity.DisplayName, &metadata, &identity.CreatedAt, &identity.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		// listing tolerates bad metadata; the gallery loader reports it
		identity.Metadata, _ = decodeMetadata(metadata)
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities WHERE encoding IS NOT NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}
