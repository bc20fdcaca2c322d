package models

import "time"

// SubscriptionStatus статус записи подписки.
// Переходы допускаются только из active: active -> expired (свипер)
// и active -> canceled (контроллер). Оба конечных статуса терминальны.
type SubscriptionStatus string

const (
	// SubscriptionActive текущий оплаченный или пробный период.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionCanceled период завершен явной отменой.
	SubscriptionCanceled SubscriptionStatus = "canceled"
	// SubscriptionExpired период завершен по истечении срока.
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Subscription историческая запись одного непрерывного периода
// премиум-доступа (оплаченного или пробного). Записи не удаляются:
// у пользователя в любой момент не более одной записи в статусе active.
type Subscription struct {
	ID        string             // UUID записи
	UserUID   string             // Владелец подписки
	Plan      Plan               // Тарифный план периода
	StartAt   time.Time          // Начало периода
	ExpiresAt *time.Time         // Окончание периода, nil только для lifetime
	Status    SubscriptionStatus // active, canceled или expired
	AutoRenew bool               // Флаг автопродления на момент периода
	PaymentID *string            // Ссылка на платеж, nil для пробных периодов
	CreatedAt time.Time
	UpdatedAt time.Time
}
