//go:build integration

// Package testutil starts the throwaway Postgres used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
)

const DatabaseName = "chamada_test"

// Postgres is a running pgvector container.
type Postgres struct {
	DSN       string
	container testcontainers.Container
}

// StartPostgres starts pgvector/pgvector:pg16 and, when migrate is true,
// applies the embedded migrations.
func StartPostgres(ctx context.Context, migrate bool) (*Postgres, error) {
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       DatabaseName,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}

	pg := &Postgres{
		DSN:       fmt.Sprintf("postgres://test:test@%s:%s/%s?sslmode=disable", host, port.Port(), DatabaseName),
		container: container,
	}

	if migrate {
		if err := pg.Migrate(); err != nil {
			_ = container.Terminate(ctx)
			return nil, err
		}
	}

	return pg, nil
}

// Migrate applies every up migration.
func (p *Postgres) Migrate() error {
	db, err := database.OpenSQL(p.DSN)
	if err != nil {
		return err
	}
	migrator, err := database.NewMigrator(db, DatabaseName)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _ = migrator.Close() }()

	return migrator.Up()
}

func (p *Postgres) Terminate(ctx context.Context) error {
	return p.container.Terminate(ctx)
}
