package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// CreateNotification сохраняет уведомление и возвращает его ID.
func (s *Storage) CreateNotification(ctx context.Context, n models.Notification) (int64, error) {
	const op = "storage.CreateNotification"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO notifications (user_uid, type, title, message, meta)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int64
	if err := s.DB.QueryRowContext(ctx, query,
		n.UserUID, n.Type, n.Title, n.Message, meta).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// HasRecentNotification сообщает, было ли у пользователя уведомление данного
// типа начиная с момента since. Используется свипером как окно дедупликации.
// Запрос идет по индексу idx_notifications_user_type_created.
func (s *Storage) HasRecentNotification(ctx context.Context, userUID, ntype string, since time.Time) (bool, error) {
	const op = "storage.HasRecentNotification"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM notifications
			      WHERE user_uid = $1
			        AND type = $2
			        AND created_at >= $3
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, ntype, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListRecentNotifications возвращает последние уведомления пользователя
// данного типа, новые первыми, не больше limit штук.
func (s *Storage) ListRecentNotifications(ctx context.Context, userUID, ntype string, limit int) ([]*models.Notification, error) {
	const op = "storage.ListRecentNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, type, title, message, meta, is_read, created_at
			  FROM notifications
			  WHERE user_uid = $1
			    AND type = $2
			  ORDER BY created_at DESC
			  LIMIT $3`
	return s.queryNotifications(ctx, op, query, userUID, ntype, limit)
}

// ListNotifications возвращает уведомления пользователя с пагинацией,
// новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, error) {
	const op = "storage.ListNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, type, title, message, meta, is_read, created_at
			  FROM notifications
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	return s.queryNotifications(ctx, op, query, userUID, limit, offset)
}

// MarkNotificationRead помечает уведомление пользователя прочитанным.
// Возвращает false, если уведомление не найдено или принадлежит другому.
func (s *Storage) MarkNotificationRead(ctx context.Context, userUID string, id int64) (bool, error) {
	const op = "storage.MarkNotificationRead"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE notifications
			  SET is_read = TRUE
			  WHERE id = $1
			    AND user_uid = $2`
	res, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

func (s *Storage) queryNotifications(ctx context.Context, op, query string, args ...any) ([]*models.Notification, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Notification
	for rows.Next() {
		var n models.Notification
		var meta []byte
		if err := rows.Scan(&n.ID, &n.UserUID, &n.Type, &n.Title, &n.Message,
			&meta, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(meta, &n.Meta); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
