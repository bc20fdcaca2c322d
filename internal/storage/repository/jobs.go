package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// CreateDeferredJob сохраняет отложенное задание и возвращает его ID.
func (s *Storage) CreateDeferredJob(ctx context.Context, job models.DeferredJob) (int64, error) {
	const op = "storage.CreateDeferredJob"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO deferred_jobs (kind, run_at, status, payload)
			  VALUES ($1, $2, 'pending', $3)
			  RETURNING id`
	var newID int64
	if err := s.DB.QueryRowContext(ctx, query,
		job.Kind, job.RunAt, []byte(job.Payload)).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListDueJobs возвращает созревшие pending-задания, самые ранние первыми.
// Запрос идет по индексу idx_deferred_jobs_status_run.
func (s *Storage) ListDueJobs(ctx context.Context, now time.Time, limit int) ([]*models.DeferredJob, error) {
	const op = "storage.ListDueJobs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, kind, run_at, status, attempts, payload, created_at, updated_at
			  FROM deferred_jobs
			  WHERE status = 'pending'
			    AND run_at <= $1
			  ORDER BY run_at ASC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DeferredJob
	for rows.Next() {
		var job models.DeferredJob
		var payload []byte
		if err := rows.Scan(&job.ID, &job.Kind, &job.RunAt, &job.Status,
			&job.Attempts, &payload, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		job.Payload = payload
		result = append(result, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClaimJob переводит pending-задание в running. Возвращает false, если
// задание уже забрал другой диспетчер: условный UPDATE служит дешевой
// блокировкой на случай нескольких экземпляров.
func (s *Storage) ClaimJob(ctx context.Context, id int64) (bool, error) {
	const op = "storage.ClaimJob"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE deferred_jobs
			  SET status = 'running', updated_at = now()
			  WHERE id = $1
			    AND status = 'pending'`
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// CompleteJob помечает задание выполненным.
func (s *Storage) CompleteJob(ctx context.Context, id int64) error {
	const op = "storage.CompleteJob"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE deferred_jobs
			  SET status = 'done', updated_at = now()
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FailJob увеличивает счетчик попыток и возвращает задание в pending.
// При достижении maxAttempts задание уходит в failed и больше не берется.
func (s *Storage) FailJob(ctx context.Context, id int64, maxAttempts int) error {
	const op = "storage.FailJob"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE deferred_jobs
			  SET attempts = attempts + 1,
			      status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END,
			      updated_at = now()
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id, maxAttempts); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
