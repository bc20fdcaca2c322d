// Package dispatch реализует отложенные одноразовые задания: планировщик
// записывает их в хранилище, диспетчер по расписанию забирает созревшие
// и исполняет. Доставка at-least-once, повторы закрывает идемпотентность
// самих операций.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
)

// Repository определяет методы хранилища отложенных заданий.
type Repository interface {
	// CreateDeferredJob сохраняет задание и возвращает его ID.
	CreateDeferredJob(ctx context.Context, job models.DeferredJob) (int64, error)
	// ListDueJobs возвращает созревшие pending-задания.
	ListDueJobs(ctx context.Context, now time.Time, limit int) ([]*models.DeferredJob, error)
	// ClaimJob переводит задание в running, false если его уже забрали.
	ClaimJob(ctx context.Context, id int64) (bool, error)
	// CompleteJob помечает задание выполненным.
	CompleteJob(ctx context.Context, id int64) error
	// FailJob возвращает задание в pending или хоронит после maxAttempts.
	FailJob(ctx context.Context, id int64, maxAttempts int) error
}

// Scheduler откладывает задания в хранилище.
type Scheduler struct {
	repo Repository
}

// NewScheduler создает новый экземпляр Scheduler.
func NewScheduler(repo Repository) *Scheduler {
	return &Scheduler{repo: repo}
}

// ScheduleAt сохраняет одноразовое задание на момент runAt.
func (s *Scheduler) ScheduleAt(ctx context.Context, kind string, runAt time.Time, payload any) (int64, error) {
	const op = "dispatch.ScheduleAt"
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return s.repo.CreateDeferredJob(ctx, models.DeferredJob{
		Kind:    kind,
		RunAt:   runAt,
		Payload: raw,
	})
}

// Converter конвертирует завершившийся пробный период в оплаченный.
type Converter interface {
	CompleteTrialCharge(ctx context.Context, payload models.TrialChargePayload) (*lifecycle.TrialChargeResult, error)
}

// Dispatcher исполняет созревшие отложенные задания.
type Dispatcher struct {
	repo      Repository
	converter Converter
	log       *slog.Logger
	cfg       config.Dispatcher
	now       func() time.Time
}

// NewDispatcher создает новый экземпляр Dispatcher.
func NewDispatcher(repo Repository, converter Converter, log *slog.Logger, cfg config.Dispatcher) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		converter: converter,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run запускает диспетчер по расписанию до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollEvery)
	defer ticker.Stop()

	d.DispatchDueJobs(ctx)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchDueJobs(ctx)
		}
	}
}

// DispatchDueJobs забирает и исполняет пачку созревших заданий.
func (d *Dispatcher) DispatchDueJobs(ctx context.Context) {
	jobs, err := d.repo.ListDueJobs(ctx, d.now().UTC(), d.cfg.JobBatch)
	if err != nil {
		d.log.Error("failed to list due jobs", sl.Err(err))
		return
	}

	for _, job := range jobs {
		claimed, err := d.repo.ClaimJob(ctx, job.ID)
		if err != nil {
			d.log.Error("failed to claim job", slog.Int64("job_id", job.ID), sl.Err(err))
			continue
		}
		if !claimed {
			continue
		}
		d.runJob(ctx, job)
	}
}

func (d *Dispatcher) runJob(ctx context.Context, job *models.DeferredJob) {
	switch job.Kind {
	case models.JobKindTrialCharge:
		d.runTrialCharge(ctx, job)
	default:
		d.log.Warn("unknown job kind", slog.Int64("job_id", job.ID), slog.String("kind", job.Kind))
		d.failJob(ctx, job.ID)
	}
}

func (d *Dispatcher) runTrialCharge(ctx context.Context, job *models.DeferredJob) {
	var payload models.TrialChargePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		d.log.Error("bad trial-charge payload", slog.Int64("job_id", job.ID), sl.Err(err))
		d.failJob(ctx, job.ID)
		return
	}

	res, err := d.converter.CompleteTrialCharge(ctx, payload)
	if err != nil {
		d.log.Error("trial charge failed, job will be retried",
			slog.Int64("job_id", job.ID),
			slog.String("user_uid", payload.UserUID),
			sl.Err(err))
		d.failJob(ctx, job.ID)
		return
	}

	if !res.OK {
		// Отказ по предусловию терминален: профиль изменился и повтор
		// задания ничего не изменит (триал отменен, уже сконвертирован
		// или пользователь удален).
		d.log.Info("trial charge skipped",
			slog.Int64("job_id", job.ID),
			slog.String("user_uid", payload.UserUID),
			slog.String("reason", res.Reason))
	} else {
		d.log.Info("trial charge completed",
			slog.Int64("job_id", job.ID),
			slog.String("user_uid", payload.UserUID),
			slog.String("subscription_id", res.SubscriptionID))
	}

	if err := d.repo.CompleteJob(ctx, job.ID); err != nil {
		d.log.Error("failed to complete job", slog.Int64("job_id", job.ID), sl.Err(err))
	}
}

func (d *Dispatcher) failJob(ctx context.Context, id int64) {
	if err := d.repo.FailJob(ctx, id, d.cfg.MaxAttempts); err != nil {
		d.log.Error("failed to mark job failed", slog.Int64("job_id", id), sl.Err(err))
	}
}
