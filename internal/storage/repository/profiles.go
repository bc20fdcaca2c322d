package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

const profileColumns = `uid, email, username, password_hash, role, premium_plan,
			      premium_expires_at, premium_auto_renew, trial_ends_at, free_trial_used, created_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	var plan sql.NullString
	var expiresAt, trialEndsAt sql.NullTime
	if err := row.Scan(&p.UID, &p.Email, &p.Username, &p.PasswordHash, &p.Role, &plan,
		&expiresAt, &p.PremiumAutoRenew, &trialEndsAt, &p.FreeTrialUsed, &p.CreatedAt); err != nil {
		return nil, err
	}
	if plan.Valid {
		pl := models.Plan(plan.String)
		p.PremiumPlan = &pl
	}
	if expiresAt.Valid {
		p.PremiumExpiresAt = &expiresAt.Time
	}
	if trialEndsAt.Valid {
		p.TrialEndsAt = &trialEndsAt.Time
	}
	return p, nil
}

// CreateProfile сохраняет нового пользователя с ролью free и возвращает его UID.
func (s *Storage) CreateProfile(ctx context.Context, profile models.Profile) (string, error) {
	const op = "storage.CreateProfile"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		profile.Email, profile.Username, profile.PasswordHash, profile.Role).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetProfile возвращает профиль по его UID.
func (s *Storage) GetProfile(ctx context.Context, userUID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `
			  FROM users
			  WHERE uid = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetProfileByUsername возвращает профиль по имени пользователя.
func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	const op = "storage.GetProfileByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `
			  FROM users
			  WHERE username = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// UpgradeProfilePremium переводит профиль в premium и выставляет
// денормализованные премиум-поля. markTrialUsed поднимает признак
// использованного триала; обратно признак никогда не опускается.
func (s *Storage) UpgradeProfilePremium(ctx context.Context, userUID string, patch models.PremiumStatus, markTrialUsed bool) error {
	const op = "storage.UpgradeProfilePremium"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var plan *string
	if patch.Plan != nil {
		v := string(*patch.Plan)
		plan = &v
	}
	query := `UPDATE users
			  SET role = 'premium',
			      premium_plan = $1,
			      premium_expires_at = $2,
			      premium_auto_renew = $3,
			      trial_ends_at = $4,
			      free_trial_used = free_trial_used OR $5
			  WHERE uid = $6`
	res, err := s.DB.ExecContext(ctx, query,
		plan, patch.ExpiresAt, patch.AutoRenew, patch.TrialEndsAt, markTrialUsed, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

// DowngradeProfile переводит профиль в free и очищает все премиум-поля.
// Признак free_trial_used сохраняется. Повторное понижение уже свободного
// профиля безвредно: возвращается false без изменения записи.
func (s *Storage) DowngradeProfile(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.DowngradeProfile"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET role = 'free',
			      premium_plan = NULL,
			      premium_expires_at = NULL,
			      premium_auto_renew = FALSE,
			      trial_ends_at = NULL
			  WHERE uid = $1 AND role <> 'free'`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// SetProfileAutoRenew переключает флаг автопродления на профиле.
func (s *Storage) SetProfileAutoRenew(ctx context.Context, userUID string, autoRenew bool) error {
	const op = "storage.SetProfileAutoRenew"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET premium_auto_renew = $1
			  WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, autoRenew, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

// ListPremiumProfiles возвращает все премиум-профили без бессрочного плана.
// Запрос идет по индексу idx_users_role.
func (s *Storage) ListPremiumProfiles(ctx context.Context) ([]*models.Profile, error) {
	const op = "storage.ListPremiumProfiles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `
			  FROM users
			  WHERE role = 'premium'
			    AND (premium_plan IS NULL OR premium_plan <> 'lifetime')`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
