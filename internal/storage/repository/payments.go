package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// CreatePayment фиксирует оплату тарифа. Реального списания здесь нет,
// запись служит ссылкой для payment_id подписки.
func (s *Storage) CreatePayment(ctx context.Context, id, userUID string, plan models.Plan) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (id, user_uid, plan)
			  VALUES ($1, $2, $3)`
	if _, err := s.DB.ExecContext(ctx, query, id, userUID, plan); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
