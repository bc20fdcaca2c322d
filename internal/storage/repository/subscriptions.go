package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

const subscriptionColumns = `id, user_uid, plan, start_at, expires_at, status,
			      auto_renew, payment_id, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var expiresAt sql.NullTime
	var paymentID sql.NullString
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Plan, &sub.StartAt, &expiresAt,
		&sub.Status, &sub.AutoRenew, &paymentID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	if paymentID.Valid {
		sub.PaymentID = &paymentID.String
	}
	return sub, nil
}

// CreateSubscription вставляет новую запись подписки и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, user_uid, plan, start_at, expires_at,
			      status, auto_renew, payment_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		sub.ID, sub.UserUID, sub.Plan, sub.StartAt, sub.ExpiresAt,
		sub.Status, sub.AutoRenew, sub.PaymentID).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает запись подписки по её ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CloseSubscription переводит активную подписку в терминальный статус
// (expired или canceled). Возвращает false, если запись уже не active —
// это делает операцию идемпотентной при повторных проходах свипера.
func (s *Storage) CloseSubscription(ctx context.Context, id string, status models.SubscriptionStatus) (bool, error) {
	const op = "storage.CloseSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, updated_at = now()
			  WHERE id = $2
			    AND status = 'active'`
	res, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// ListExpiredPage возвращает страницу подписок с истекшим сроком,
// упорядоченную по expires_at по возрастанию. Курсор строго больше:
// возобновление не перечитывает уже обработанные записи и не зацикливается
// на одинаковых expires_at. Запрос идет по индексу idx_subscriptions_expires_at.
func (s *Storage) ListExpiredPage(ctx context.Context, now time.Time, cursor *time.Time, limit int) ([]*models.Subscription, error) {
	const op = "storage.ListExpiredPage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE expires_at IS NOT NULL
			    AND expires_at <= $1
			    AND ($2::timestamptz IS NULL OR expires_at > $2)
			  ORDER BY expires_at ASC
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, now, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveSubscriptions возвращает число активных подписок пользователя.
// Запрос идет по индексу idx_subscriptions_user_status.
func (s *Storage) CountActiveSubscriptions(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountActiveSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM subscriptions
			  WHERE user_uid = $1
			    AND status = 'active'`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListActiveSubscriptions возвращает активные подписки пользователя.
func (s *Storage) ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	const op = "storage.ListActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			    AND status = 'active'
			  ORDER BY start_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateLatestSubscriptionAutoRenew отражает флаг автопродления на последней
// по дате начала подписке пользователя. Используется как best-effort зеркало
// профиля, запрос идет по индексу idx_subscriptions_user_start.
func (s *Storage) UpdateLatestSubscriptionAutoRenew(ctx context.Context, userUID string, autoRenew bool) error {
	const op = "storage.UpdateLatestSubscriptionAutoRenew"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET auto_renew = $1, updated_at = now()
			  WHERE id = (
			      SELECT id FROM subscriptions
			      WHERE user_uid = $2
			      ORDER BY start_at DESC
			      LIMIT 1
			  )`
	if _, err := s.DB.ExecContext(ctx, query, autoRenew, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
