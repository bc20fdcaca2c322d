// Package sweeper реализует фоновое погашение истекших подписок:
// переводит их в статус expired, понижает профили без активных подписок
// и рассылает уведомления об окончании премиум-доступа.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/besteffort"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// notifyDedupWindow окно подавления повторных уведомлений plan-expired.
const notifyDedupWindow = 24 * time.Hour

// Repository определяет методы хранилища, нужные свиперу.
type Repository interface {
	// ListExpiredPage возвращает страницу истекших подписок после курсора.
	ListExpiredPage(ctx context.Context, now time.Time, cursor *time.Time, limit int) ([]*models.Subscription, error)
	// CloseSubscription переводит активную подписку в терминальный статус.
	CloseSubscription(ctx context.Context, id string, status models.SubscriptionStatus) (bool, error)
	// CountActiveSubscriptions возвращает число активных подписок пользователя.
	CountActiveSubscriptions(ctx context.Context, userUID string) (int, error)
	// DowngradeProfile переводит профиль в free, сообщая, изменилась ли запись.
	DowngradeProfile(ctx context.Context, userUID string) (bool, error)
	// HasRecentNotification сообщает о недавнем уведомлении данного типа.
	HasRecentNotification(ctx context.Context, userUID, ntype string, since time.Time) (bool, error)
}

// Notifier сохраняет уведомление и рассылает письмо.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) (int64, error)
}

// Cache инвалидация кеша премиум-статусов.
type Cache interface {
	Invalidate(key string) error
}

// Result итог одного прохода свипера по пачке.
type Result struct {
	ExpiredCount    int        // Подписок переведено в expired
	DowngradedCount int        // Профилей понижено до free
	NotifiedCount   int        // Отправлено уведомлений plan-expired
	Continued       bool       // Пачка была полной, есть продолжение
	NextCursor      *time.Time // Курсор для следующей пачки
}

// Service реализует свипер истекших подписок.
type Service struct {
	repo     Repository
	notifier Notifier
	cache    Cache
	log      *slog.Logger
	cfg      config.Sweeper
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, notifier Notifier, cache Cache, log *slog.Logger, cfg config.Sweeper) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		cache:    cache,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run запускает свипер по расписанию до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()

	s.runSweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep прогоняет свипер по всем пачкам до исчерпания истекших подписок.
func (s *Service) runSweep(ctx context.Context) {
	now := s.now().UTC()
	var cursor *time.Time
	total := 0

	for {
		res, err := s.Sweep(ctx, now, cursor)
		if err != nil {
			s.log.Error("sweep batch failed", sl.Err(err))
			return
		}
		total += res.ExpiredCount
		if !res.Continued {
			break
		}
		cursor = res.NextCursor
	}
	if total > 0 {
		s.log.Info("sweep finished", slog.Int("expired", total))
	}
}

// Sweep обрабатывает одну пачку истекших подписок начиная с курсора.
// Операция идемпотентна: уже погашенные подписки не закрываются повторно,
// но их владельцы все равно перепроверяются, поэтому сорвавшееся понижение
// профиля доводится до конца следующим проходом. Уведомления подавляются
// окном дедупликации и отправляются только при реальном понижении.
func (s *Service) Sweep(ctx context.Context, now time.Time, cursor *time.Time) (*Result, error) {
	if s.cfg.Disabled {
		s.log.Warn("sweeper is disabled, skipping")
		return &Result{}, nil
	}

	rows, err := s.repo.ListExpiredPage(ctx, now, cursor, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	result := &Result{}
	expiryByUser := make(map[string]*time.Time)

	for _, sub := range rows {
		// Курсор продвигается по каждой записи, включая пропущенные:
		// страница из одних неактивных записей не должна зациклить обход.
		result.NextCursor = sub.ExpiresAt
		if sub.Status != models.SubscriptionActive {
			// Уже погашенная запись: профиль владельца мог остаться
			// премиумом, если прошлое понижение сорвалось. Владелец
			// попадает в перепроверку, повторное понижение безвредно.
			if sub.Status == models.SubscriptionExpired {
				if _, seen := expiryByUser[sub.UserUID]; !seen {
					expiryByUser[sub.UserUID] = sub.ExpiresAt
				}
			}
			continue
		}
		affected, err := s.repo.CloseSubscription(ctx, sub.ID, models.SubscriptionExpired)
		if err != nil {
			s.log.Error("failed to close expired subscription",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if !affected {
			continue
		}
		result.ExpiredCount++
		expiryByUser[sub.UserUID] = sub.ExpiresAt
	}

	for userUID, expiresAt := range expiryByUser {
		if !s.downgradeUser(ctx, userUID) {
			continue
		}
		result.DowngradedCount++
		if s.notifyExpired(ctx, now, userUID, expiresAt) {
			result.NotifiedCount++
		}
	}

	result.Continued = len(rows) == s.cfg.BatchSize
	return result, nil
}

// downgradeUser понижает пользователя до free, если у него не осталось
// активных подписок. Повторная проверка закрывает гонку с параллельным
// повышением: свежекупленный премиум не должен быть снят задним числом.
// Возвращает true, только если профиль действительно изменился: давно
// погашенные записи не должны заново рассылать уведомления.
func (s *Service) downgradeUser(ctx context.Context, userUID string) bool {
	count, err := s.repo.CountActiveSubscriptions(ctx, userUID)
	if err != nil {
		s.log.Error("failed to count active subscriptions",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	if count > 0 {
		return false
	}

	changed, err := s.repo.DowngradeProfile(ctx, userUID)
	if err != nil {
		s.log.Error("failed to downgrade profile",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	if !changed {
		return false
	}
	s.log.Info("profile downgraded after expiry",
		slog.String("user_uid", userUID))

	besteffort.Do(s.log, "sweeper.cache", func() error {
		return s.cache.Invalidate("premium-status:" + userUID)
	})
	return true
}

// notifyExpired отправляет уведомление plan-expired, подавляя повторы
// в пределах суточного окна.
func (s *Service) notifyExpired(ctx context.Context, now time.Time, userUID string, expiresAt *time.Time) bool {
	has, err := s.repo.HasRecentNotification(ctx, userUID, models.NotificationPlanExpired, now.Add(-notifyDedupWindow))
	if err != nil {
		s.log.Error("failed to check recent notifications",
			slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	if has {
		return false
	}

	sent := false
	besteffort.Do(s.log, "sweeper.notify", func() error {
		_, err := s.notifier.Notify(ctx, models.Notification{
			UserUID: userUID,
			Type:    models.NotificationPlanExpired,
			Title:   "Премиум-доступ закончился",
			Message: "Срок вашего премиум-доступа истек, аккаунт переведен на бесплатный тариф.",
			Meta:    models.NotificationMeta{ExpiresAt: expiresAt},
		})
		if err == nil {
			sent = true
		}
		return err
	})
	return sent
}
