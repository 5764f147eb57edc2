package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	batchSize = 10
	// a delivery left in "sending" this long is assumed abandoned by a
	// crashed replica and picked up again
	sendingLease = 5 * time.Minute
)

type Poster interface {
	Send(ctx context.Context, eventType string, payload []byte) error
}

// Worker delivers queued events, retrying with exponential backoff.
type Worker struct {
	db       DB
	sender   Poster
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewWorker(db DB, sender Poster, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		db:       db,
		sender:   sender,
		logger:   logger.With("component", "webhook_worker"),
		interval: interval,
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("webhook worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return
		case <-ticker.C:
			if err := w.processQueue(ctx); err != nil {
				w.logger.Error("failed to process webhook queue", "error", err)
			}
		}
	}
}

// claim moves a batch of due deliveries to "sending" in one statement, so
// concurrent workers never send the same delivery.
func (w *Worker) claim(ctx context.Context) ([]Delivery, error) {
	query := `
		UPDATE webhook_deliveries
		SET status = 'sending', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM webhook_deliveries
			WHERE (status = 'pending' AND next_retry_at <= NOW())
			   OR (status = 'sending' AND updated_at < $1)
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, attempts, max_attempts
	`

	rows, err := w.db.Query(ctx, query, w.now().Add(-sendingLease), batchSize)
	if err != nil {
		return nil, fmt.Errorf("claim deliveries: %w", err)
	}
	defer rows.Close()

	var jobs []Delivery
	for rows.Next() {
		var job Delivery
		if err := rows.Scan(&job.ID, &job.EventType, &job.Payload, &job.Attempts, &job.MaxAttempts); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return jobs, nil
}

func (w *Worker) processQueue(ctx context.Context) error {
	jobs, err := w.claim(ctx)
	if err != nil {
		return err
	}

	for i := range jobs {
		if err := w.processJob(ctx, &jobs[i]); err != nil {
			w.logger.Error("failed to process webhook delivery",
				"delivery_id", jobs[i].ID,
				"attempts", jobs[i].Attempts,
				"error", err,
			)
		}
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, job *Delivery) error {
	if err := w.sender.Send(ctx, job.EventType, job.Payload); err != nil {
		return w.scheduleRetry(ctx, job, err.Error())
	}
	return w.markDelivered(ctx, job.ID)
}

func (w *Worker) scheduleRetry(ctx context.Context, job *Delivery, errorMsg string) error {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		return w.markFailed(ctx, job.ID, attempts, errorMsg)
	}

	delay := time.Duration(1<<job.Attempts) * time.Second
	nextRetry := w.now().Add(delay)

	query := `
		UPDATE webhook_deliveries
		SET attempts = $1, next_retry_at = $2, last_error = $3, status = 'pending', updated_at = NOW()
		WHERE id = $4
	`

	if _, err := w.db.Exec(ctx, query, attempts, nextRetry, errorMsg, job.ID); err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}

	w.logger.Info("webhook delivery scheduled for retry",
		"delivery_id", job.ID,
		"attempts", attempts,
		"next_retry", nextRetry,
	)
	return nil
}

func (w *Worker) markDelivered(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_deliveries SET status = 'delivered', attempts = attempts + 1, updated_at = NOW() WHERE id = $1`
	if _, err := w.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	w.logger.Debug("webhook delivered", "delivery_id", id)
	return nil
}

func (w *Worker) markFailed(ctx context.Context, id uuid.UUID, attempts int, errorMsg string) error {
	query := `UPDATE webhook_deliveries SET status = 'failed', attempts = $1, last_error = $2, updated_at = NOW() WHERE id = $3`
	if _, err := w.db.Exec(ctx, query, attempts, errorMsg, id); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	w.logger.Warn("webhook delivery failed permanently", "delivery_id", id, "error", errorMsg)
	return nil
}
