// Package lifecycle содержит бизнес-логику жизненного цикла премиум-доступа:
// повышение роли (с пробным периодом или без), конвертацию триала в оплаченный
// период и управление автопродлением.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/besteffort"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/month"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// TrialDuration длительность бесплатного пробного периода.
const TrialDuration = 7 * 24 * time.Hour

const statusCacheTTL = 5 * time.Minute

// Причины отказа операций. Отказ по предусловию не является ошибкой
// инфраструктуры и возвращается в Outcome, а не через error.
const (
	ReasonUserNotFound      = "user-not-found"
	ReasonAlreadyPremium    = "already-premium"
	ReasonAlreadyFree       = "already-free"
	ReasonInvalidPlan       = "invalid-plan"
	ReasonNotPremium        = "not-premium"
	ReasonAutoRenewDisabled = "auto-renew-disabled"
	ReasonTrialMismatch     = "trial-mismatch"
	ReasonTrialNotEnded     = "trial-not-ended"
)

// Repository определяет методы хранилища, нужные жизненному циклу.
type Repository interface {
	// GetProfile возвращает профиль по UID.
	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
	// UpgradeProfilePremium переводит профиль в premium с денормализованными полями.
	UpgradeProfilePremium(ctx context.Context, userUID string, patch models.PremiumStatus, markTrialUsed bool) error
	// DowngradeProfile переводит профиль в free и очищает премиум-поля.
	// Возвращает true, если запись действительно изменилась.
	DowngradeProfile(ctx context.Context, userUID string) (bool, error)
	// SetProfileAutoRenew переключает флаг автопродления на профиле.
	SetProfileAutoRenew(ctx context.Context, userUID string, autoRenew bool) error
	// CreateSubscription вставляет запись подписки.
	CreateSubscription(ctx context.Context, sub models.Subscription) (string, error)
	// ListActiveSubscriptions возвращает активные подписки пользователя.
	ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
	// CloseSubscription переводит активную подписку в терминальный статус.
	CloseSubscription(ctx context.Context, id string, status models.SubscriptionStatus) (bool, error)
	// UpdateLatestSubscriptionAutoRenew отражает флаг на последней подписке.
	UpdateLatestSubscriptionAutoRenew(ctx context.Context, userUID string, autoRenew bool) error
	// CreatePayment фиксирует оплату тарифа.
	CreatePayment(ctx context.Context, id, userUID string, plan models.Plan) error
	// AppendUpgrade добавляет запись аудита.
	AppendUpgrade(ctx context.Context, rec models.UpgradeRecord) (int64, error)
}

// Cache описывает методы для кэширования премиум-статусов.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// JobScheduler откладывает одноразовое задание на момент runAt.
type JobScheduler interface {
	ScheduleAt(ctx context.Context, kind string, runAt time.Time, payload any) (int64, error)
}

// Outcome типизированный исход операции. OK = false означает отказ
// по предусловию с машинно-читаемой причиной.
type Outcome struct {
	OK     bool
	Reason string
}

// UpgradeResult результат операции смены уровня доступа.
type UpgradeResult struct {
	Outcome
	Role           models.Role
	Status         models.PremiumStatus
	SubscriptionID string
	TrialApplied   bool
}

// TrialChargeResult результат конвертации пробного периода.
type TrialChargeResult struct {
	Outcome
	SubscriptionID string
	ExpiresAt      *time.Time
}

// AutoRenewResult результат переключения автопродления.
type AutoRenewResult struct {
	Outcome
	Role       models.Role
	Downgraded bool
}

// Service реализует операции жизненного цикла премиум-доступа.
type Service struct {
	repo  Repository
	cache Cache
	jobs  JobScheduler
	log   *slog.Logger
	now   func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, jobs JobScheduler, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		jobs:  jobs,
		log:   log,
		now:   time.Now,
	}
}

func statusCacheKey(userUID string) string {
	return fmt.Sprintf("premium-status:%s", userUID)
}

func buildStatus(p *models.Profile) models.PremiumStatus {
	return models.PremiumStatus{
		Role:          p.Role,
		Plan:          p.PremiumPlan,
		ExpiresAt:     p.PremiumExpiresAt,
		AutoRenew:     p.PremiumAutoRenew,
		TrialEndsAt:   p.TrialEndsAt,
		FreeTrialUsed: p.FreeTrialUsed,
	}
}

// Upgrade меняет уровень доступа пользователя. Повышение до premium
// создает запись подписки и выставляет денормализованные поля профиля;
// пробный период выдается не больше одного раза за всю жизнь аккаунта,
// повторный запрос триала молча превращается в обычную оплату.
// Понижение до free очищает премиум-поля профиля.
func (s *Service) Upgrade(ctx context.Context, userUID string, req models.DummyUpgrade) (*UpgradeResult, error) {
	profile, err := s.repo.GetProfile(ctx, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &UpgradeResult{Outcome: Outcome{Reason: ReasonUserNotFound}}, nil
		}
		return nil, err
	}

	if req.ToRole == string(models.RoleFree) {
		return s.downgrade(ctx, profile)
	}
	return s.upgradePremium(ctx, profile, req)
}

func (s *Service) downgrade(ctx context.Context, profile *models.Profile) (*UpgradeResult, error) {
	if profile.Role == models.RoleFree {
		return &UpgradeResult{Outcome: Outcome{Reason: ReasonAlreadyFree}, Role: models.RoleFree}, nil
	}

	if _, err := s.repo.DowngradeProfile(ctx, profile.UID); err != nil {
		return nil, err
	}
	s.log.Info("profile downgraded by request", slog.String("user_uid", profile.UID))

	besteffort.Do(s.log, "lifecycle.downgrade.audit", func() error {
		_, err := s.repo.AppendUpgrade(ctx, models.UpgradeRecord{
			UserUID:  profile.UID,
			FromRole: profile.Role,
			ToRole:   models.RoleFree,
			Status:   models.UpgradeStatusDowngraded,
			Reason:   "user request",
		})
		return err
	})
	besteffort.Do(s.log, "lifecycle.downgrade.cache", func() error {
		return s.cache.Invalidate(statusCacheKey(profile.UID))
	})

	return &UpgradeResult{
		Outcome: Outcome{OK: true},
		Role:    models.RoleFree,
		Status:  models.PremiumStatus{Role: models.RoleFree, FreeTrialUsed: profile.FreeTrialUsed},
	}, nil
}

func (s *Service) upgradePremium(ctx context.Context, profile *models.Profile, req models.DummyUpgrade) (*UpgradeResult, error) {
	if profile.Role == models.RolePremium {
		return &UpgradeResult{Outcome: Outcome{Reason: ReasonAlreadyPremium}, Role: models.RolePremium}, nil
	}

	plan := models.PlanMonthly
	if req.Plan != "" {
		parsed, err := models.ParsePlan(req.Plan)
		if err != nil {
			return &UpgradeResult{Outcome: Outcome{Reason: ReasonInvalidPlan}, Role: profile.Role}, nil
		}
		plan = parsed
	}

	now := s.now().UTC()
	trialApplied := req.Trial && !profile.FreeTrialUsed

	var expiresAt, trialEndsAt *time.Time
	var paymentID *string
	autoRenew := true

	switch {
	case trialApplied:
		trialEnd := now.Add(TrialDuration)
		expiresAt = &trialEnd
		trialEndsAt = &trialEnd
	case plan == models.PlanLifetime:
		// Бессрочный план не истекает, продлевать нечего.
		autoRenew = false
		paymentID = s.resolvePayment(ctx, profile.UID, plan, req.PaymentID)
	default:
		months, _ := plan.Months()
		expiry := month.Add(now, months)
		expiresAt = &expiry
		paymentID = s.resolvePayment(ctx, profile.UID, plan, req.PaymentID)
	}

	sub := models.Subscription{
		ID:        uuid.NewString(),
		UserUID:   profile.UID,
		Plan:      plan,
		StartAt:   now,
		ExpiresAt: expiresAt,
		Status:    models.SubscriptionActive,
		AutoRenew: autoRenew,
		PaymentID: paymentID,
	}
	subID, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}

	patch := models.PremiumStatus{
		Role:        models.RolePremium,
		Plan:        &plan,
		ExpiresAt:   expiresAt,
		AutoRenew:   autoRenew,
		TrialEndsAt: trialEndsAt,
	}
	if err := s.repo.UpgradeProfilePremium(ctx, profile.UID, patch, trialApplied); err != nil {
		return nil, err
	}

	s.log.Info("profile upgraded to premium",
		slog.String("user_uid", profile.UID),
		slog.String("plan", string(plan)),
		slog.Bool("trial", trialApplied))

	auditStatus := models.UpgradeStatusUpgraded
	if trialApplied {
		auditStatus = models.UpgradeStatusTrialGranted
	}
	besteffort.Do(s.log, "lifecycle.upgrade.audit", func() error {
		_, err := s.repo.AppendUpgrade(ctx, models.UpgradeRecord{
			UserUID:  profile.UID,
			FromRole: profile.Role,
			ToRole:   models.RolePremium,
			Status:   auditStatus,
			Meta:     map[string]any{"plan": string(plan), "subscription_id": subID},
		})
		return err
	})
	besteffort.Do(s.log, "lifecycle.upgrade.cache", func() error {
		return s.cache.Invalidate(statusCacheKey(profile.UID))
	})

	if trialApplied {
		// Конвертация в оплаченный период выполнится диспетчером в момент
		// окончания триала. Потерю задания закрывает свипер: просроченная
		// пробная подписка будет погашена штатным путем.
		besteffort.Do(s.log, "lifecycle.upgrade.schedule", func() error {
			_, err := s.jobs.ScheduleAt(ctx, models.JobKindTrialCharge, *trialEndsAt, models.TrialChargePayload{
				UserUID:        profile.UID,
				Plan:           plan,
				TrialEndsAt:    *trialEndsAt,
				SubscriptionID: subID,
			})
			return err
		})
	}

	status := patch
	status.FreeTrialUsed = profile.FreeTrialUsed || trialApplied
	return &UpgradeResult{
		Outcome:        Outcome{OK: true},
		Role:           models.RolePremium,
		Status:         status,
		SubscriptionID: subID,
		TrialApplied:   trialApplied,
	}, nil
}

// resolvePayment возвращает ссылку на платеж: либо переданную клиентом,
// либо свежесозданную запись. Реального биллинга нет, запись фиксируется
// как best-effort.
func (s *Service) resolvePayment(ctx context.Context, userUID string, plan models.Plan, requested string) *string {
	if requested != "" {
		return &requested
	}
	id := uuid.NewString()
	besteffort.Do(s.log, "lifecycle.upgrade.payment", func() error {
		return s.repo.CreatePayment(ctx, id, userUID, plan)
	})
	return &id
}

// CompleteTrialCharge конвертирует завершившийся пробный период в оплаченный.
// Операция идемпотентна и безопасна при повторной доставке: устаревшее или
// уже обработанное задание отсеивается по снимку trial_ends_at в нагрузке.
func (s *Service) CompleteTrialCharge(ctx context.Context, payload models.TrialChargePayload) (*TrialChargeResult, error) {
	profile, err := s.repo.GetProfile(ctx, payload.UserUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &TrialChargeResult{Outcome: Outcome{Reason: ReasonUserNotFound}}, nil
		}
		return nil, err
	}

	if profile.Role != models.RolePremium {
		return &TrialChargeResult{Outcome: Outcome{Reason: ReasonNotPremium}}, nil
	}
	if !profile.PremiumAutoRenew {
		return &TrialChargeResult{Outcome: Outcome{Reason: ReasonAutoRenewDisabled}}, nil
	}
	if profile.TrialEndsAt == nil || !profile.TrialEndsAt.Equal(payload.TrialEndsAt) {
		return &TrialChargeResult{Outcome: Outcome{Reason: ReasonTrialMismatch}}, nil
	}
	if s.now().UTC().Before(*profile.TrialEndsAt) {
		return &TrialChargeResult{Outcome: Outcome{Reason: ReasonTrialNotEnded}}, nil
	}
	months, ok := payload.Plan.Months()
	if !ok {
		return &TrialChargeResult{Outcome: Outcome{Reason: ReasonInvalidPlan}}, nil
	}

	// Оплаченный период начинается ровно в момент окончания триала,
	// а не в момент исполнения задания: опоздание диспетчера не дарит
	// пользователю лишние дни.
	periodEnd := month.Add(payload.TrialEndsAt, months)
	paymentID := uuid.NewString()
	if err := s.repo.CreatePayment(ctx, paymentID, profile.UID, payload.Plan); err != nil {
		return nil, err
	}

	patch := models.PremiumStatus{
		Role:      models.RolePremium,
		Plan:      &payload.Plan,
		ExpiresAt: &periodEnd,
		AutoRenew: true,
	}
	if err := s.repo.UpgradeProfilePremium(ctx, profile.UID, patch, false); err != nil {
		return nil, err
	}

	besteffort.Do(s.log, "lifecycle.trialcharge.close", func() error {
		return s.closeTrialSubscription(ctx, profile.UID, payload.SubscriptionID)
	})

	sub := models.Subscription{
		ID:        uuid.NewString(),
		UserUID:   profile.UID,
		Plan:      payload.Plan,
		StartAt:   payload.TrialEndsAt,
		ExpiresAt: &periodEnd,
		Status:    models.SubscriptionActive,
		AutoRenew: true,
		PaymentID: &paymentID,
	}
	subID, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.log.Info("trial converted to paid period",
		slog.String("user_uid", profile.UID),
		slog.String("plan", string(payload.Plan)),
		slog.Time("expires_at", periodEnd))

	besteffort.Do(s.log, "lifecycle.trialcharge.audit", func() error {
		_, err := s.repo.AppendUpgrade(ctx, models.UpgradeRecord{
			UserUID:  profile.UID,
			FromRole: models.RolePremium,
			ToRole:   models.RolePremium,
			Status:   models.UpgradeStatusTrialCharged,
			Meta:     map[string]any{"plan": string(payload.Plan), "subscription_id": subID},
		})
		return err
	})
	besteffort.Do(s.log, "lifecycle.trialcharge.cache", func() error {
		return s.cache.Invalidate(statusCacheKey(profile.UID))
	})

	return &TrialChargeResult{
		Outcome:        Outcome{OK: true},
		SubscriptionID: subID,
		ExpiresAt:      &periodEnd,
	}, nil
}

func (s *Service) closeTrialSubscription(ctx context.Context, userUID, subscriptionID string) error {
	if subscriptionID != "" {
		_, err := s.repo.CloseSubscription(ctx, subscriptionID, models.SubscriptionExpired)
		return err
	}
	active, err := s.repo.ListActiveSubscriptions(ctx, userUID)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	_, err = s.repo.CloseSubscription(ctx, active[0].ID, models.SubscriptionExpired)
	return err
}

// SetAutoRenew переключает автопродление. Отключение во время действующего
// пробного периода немедленно понижает пользователя до free: неоплаченный
// триал без будущего списания не дает права на премиум-доступ.
func (s *Service) SetAutoRenew(ctx context.Context, userUID string, enabled bool, reason string) (*AutoRenewResult, error) {
	profile, err := s.repo.GetProfile(ctx, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &AutoRenewResult{Outcome: Outcome{Reason: ReasonUserNotFound}}, nil
		}
		return nil, err
	}

	if profile.Role != models.RolePremium {
		return &AutoRenewResult{Outcome: Outcome{Reason: ReasonNotPremium}, Role: profile.Role}, nil
	}

	now := s.now().UTC()
	if !enabled && profile.TrialEndsAt != nil && now.Before(*profile.TrialEndsAt) {
		return s.cancelTrial(ctx, profile, reason)
	}

	if err := s.repo.SetProfileAutoRenew(ctx, userUID, enabled); err != nil {
		return nil, err
	}
	s.log.Info("auto-renew toggled",
		slog.String("user_uid", userUID),
		slog.Bool("enabled", enabled))

	besteffort.Do(s.log, "lifecycle.autorenew.mirror", func() error {
		return s.repo.UpdateLatestSubscriptionAutoRenew(ctx, userUID, enabled)
	})

	auditStatus := models.UpgradeStatusAutoRenewCanceled
	if enabled {
		auditStatus = models.UpgradeStatusAutoRenewOn
	}
	besteffort.Do(s.log, "lifecycle.autorenew.audit", func() error {
		_, err := s.repo.AppendUpgrade(ctx, models.UpgradeRecord{
			UserUID:  userUID,
			FromRole: models.RolePremium,
			ToRole:   models.RolePremium,
			Status:   auditStatus,
			Reason:   reason,
		})
		return err
	})
	besteffort.Do(s.log, "lifecycle.autorenew.cache", func() error {
		return s.cache.Invalidate(statusCacheKey(userUID))
	})

	return &AutoRenewResult{Outcome: Outcome{OK: true}, Role: models.RolePremium}, nil
}

func (s *Service) cancelTrial(ctx context.Context, profile *models.Profile, reason string) (*AutoRenewResult, error) {
	besteffort.Do(s.log, "lifecycle.autorenew.canceltrial", func() error {
		active, err := s.repo.ListActiveSubscriptions(ctx, profile.UID)
		if err != nil {
			return err
		}
		for _, sub := range active {
			if _, err := s.repo.CloseSubscription(ctx, sub.ID, models.SubscriptionCanceled); err != nil {
				return err
			}
		}
		return nil
	})

	if _, err := s.repo.DowngradeProfile(ctx, profile.UID); err != nil {
		return nil, err
	}
	s.log.Info("trial canceled, profile downgraded",
		slog.String("user_uid", profile.UID))

	besteffort.Do(s.log, "lifecycle.autorenew.audit", func() error {
		_, err := s.repo.AppendUpgrade(ctx, models.UpgradeRecord{
			UserUID:  profile.UID,
			FromRole: models.RolePremium,
			ToRole:   models.RoleFree,
			Status:   models.UpgradeStatusAutoRenewCanceled,
			Reason:   reason,
			Meta:     map[string]any{"trial": true},
		})
		return err
	})
	besteffort.Do(s.log, "lifecycle.autorenew.cache", func() error {
		return s.cache.Invalidate(statusCacheKey(profile.UID))
	})

	return &AutoRenewResult{Outcome: Outcome{OK: true}, Role: models.RoleFree, Downgraded: true}, nil
}

// PremiumStatus возвращает снимок премиум-полей профиля, используя кеш
// или репозиторий.
func (s *Service) PremiumStatus(ctx context.Context, userUID string) (*models.PremiumStatus, error) {
	var cached models.PremiumStatus
	cacheKey := statusCacheKey(userUID)
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read premium status from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	profile, err := s.repo.GetProfile(ctx, userUID)
	if err != nil {
		return nil, err
	}

	status := buildStatus(profile)
	if err := s.cache.Set(cacheKey, status, statusCacheTTL); err != nil {
		s.log.Warn("failed to cache premium status", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return &status, nil
}
