// Package reminder реализует планировщик напоминаний о скором окончании
// премиум-доступа: раз в сутки сверяет окончания с окнами напоминаний
// и рассылает уведомления plan-expiring.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/month"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// recentNotificationsLimit глубина просмотра истории при дедупликации.
const recentNotificationsLimit = 200

// Repository определяет методы хранилища, нужные планировщику напоминаний.
type Repository interface {
	// ListPremiumProfiles возвращает премиум-профили без бессрочного плана.
	ListPremiumProfiles(ctx context.Context) ([]*models.Profile, error)
	// ListActiveSubscriptions возвращает активные подписки пользователя.
	ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
	// ListRecentNotifications возвращает последние уведомления данного типа.
	ListRecentNotifications(ctx context.Context, userUID, ntype string, limit int) ([]*models.Notification, error)
}

// Notifier сохраняет уведомление и рассылает письмо.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) (int64, error)
}

// Result итог одного прохода планировщика напоминаний.
type Result struct {
	Sent    int   // Отправлено напоминаний
	Windows []int // Действовавшие окна напоминаний в днях
}

// Service реализует планировщик напоминаний.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
	cfg      config.Reminder
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, notifier Notifier, log *slog.Logger, cfg config.Reminder) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run запускает планировщик по расписанию до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RemindEvery)
	defer ticker.Stop()

	s.runRemind(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder stopped")
			return
		case <-ticker.C:
			s.runRemind(ctx)
		}
	}
}

func (s *Service) runRemind(ctx context.Context) {
	res, err := s.Remind(ctx, s.now().UTC(), nil)
	if err != nil {
		s.log.Error("reminder pass failed", sl.Err(err))
		return
	}
	if res.Sent > 0 {
		s.log.Info("reminders sent", slog.Int("count", res.Sent))
	}
}

// Remind проходит по премиум-профилям и отправляет напоминания тем,
// чье ближайшее окончание попадает в одно из окон. Пустой срез windows
// означает окна из конфигурации; действовавшие окна возвращаются
// в результате. Повторный запуск в тот же день ничего не отправляет:
// пара (окончание, окно) дедуплицируется по истории.
func (s *Service) Remind(ctx context.Context, now time.Time, windows []int) (*Result, error) {
	if len(windows) == 0 {
		windows = s.cfg.Windows
	}

	profiles, err := s.repo.ListPremiumProfiles(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Windows: windows}
	for _, profile := range profiles {
		ok, err := s.remindProfile(ctx, now, profile, windows)
		if err != nil {
			s.log.Error("failed to remind user",
				slog.String("user_uid", profile.UID), sl.Err(err))
			continue
		}
		if ok {
			result.Sent++
		}
	}
	return result, nil
}

func (s *Service) remindProfile(ctx context.Context, now time.Time, profile *models.Profile, windows []int) (bool, error) {
	expiry, found := s.nearestExpiry(ctx, now, profile)
	if !found {
		return false, nil
	}

	days := month.DaysUntil(now, expiry)
	if !inWindow(days, windows) {
		return false, nil
	}

	recent, err := s.repo.ListRecentNotifications(ctx, profile.UID, models.NotificationPlanExpiring, recentNotificationsLimit)
	if err != nil {
		return false, err
	}
	for _, n := range recent {
		if n.Meta.Matches(expiry, days) {
			return false, nil
		}
	}

	_, err = s.notifier.Notify(ctx, models.Notification{
		UserUID: profile.UID,
		Type:    models.NotificationPlanExpiring,
		Title:   "Премиум-доступ скоро закончится",
		Message: fmt.Sprintf("Ваш премиум-доступ закончится через %d дн. Продлите подписку, чтобы не потерять доступ.", days),
		Meta:    models.NotificationMeta{ExpiresAt: &expiry, Days: days},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// nearestExpiry возвращает ближайшее будущее окончание премиума:
// минимум из денормализованного поля профиля и окончаний активных подписок.
func (s *Service) nearestExpiry(ctx context.Context, now time.Time, profile *models.Profile) (time.Time, bool) {
	var candidates []time.Time
	if profile.PremiumExpiresAt != nil {
		candidates = append(candidates, *profile.PremiumExpiresAt)
	}

	subs, err := s.repo.ListActiveSubscriptions(ctx, profile.UID)
	if err != nil {
		s.log.Error("failed to list active subscriptions",
			slog.String("user_uid", profile.UID), sl.Err(err))
	}
	for _, sub := range subs {
		if sub.ExpiresAt != nil {
			candidates = append(candidates, *sub.ExpiresAt)
		}
	}

	var nearest time.Time
	found := false
	for _, c := range candidates {
		if !c.After(now) {
			continue
		}
		if !found || c.Before(nearest) {
			nearest = c
			found = true
		}
	}
	return nearest, found
}

func inWindow(days int, windows []int) bool {
	for _, w := range windows {
		if days == w {
			return true
		}
	}
	return false
}
