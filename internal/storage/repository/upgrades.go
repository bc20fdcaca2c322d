package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// AppendUpgrade добавляет запись аудита смены роли. Журнал только растет,
// записи никогда не изменяются.
func (s *Storage) AppendUpgrade(ctx context.Context, rec models.UpgradeRecord) (int64, error) {
	const op = "storage.AppendUpgrade"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	meta := rec.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO upgrades (user_uid, from_role, to_role, status, reason, meta)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int64
	if err := s.DB.QueryRowContext(ctx, query,
		rec.UserUID, rec.FromRole, rec.ToRole, rec.Status, rec.Reason, rawMeta).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListUpgrades возвращает записи аудита пользователя, новые первыми.
func (s *Storage) ListUpgrades(ctx context.Context, userUID string, limit int) ([]*models.UpgradeRecord, error) {
	const op = "storage.ListUpgrades"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, from_role, to_role, status, reason, meta, created_at
			  FROM upgrades
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UpgradeRecord
	for rows.Next() {
		var rec models.UpgradeRecord
		var rawMeta []byte
		if err := rows.Scan(&rec.ID, &rec.UserUID, &rec.FromRole, &rec.ToRole,
			&rec.Status, &rec.Reason, &rawMeta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(rawMeta, &rec.Meta); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
