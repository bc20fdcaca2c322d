package models

import "time"

// Типы уведомлений, порождаемых ядром подписок.
const (
	// NotificationPlanExpired премиум-доступ закончился, профиль понижен.
	NotificationPlanExpired = "plan-expired"
	// NotificationPlanExpiring напоминание о скором окончании премиума.
	NotificationPlanExpiring = "plan-expiring"
)

// NotificationMeta структурированные метаданные уведомления.
// Используются как ключ идемпотентности: свипер и планировщик напоминаний
// сверяют meta недавних уведомлений, чтобы не отправить повтор.
type NotificationMeta struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // Момент окончания, к которому относится уведомление
	Days      int        `json:"days,omitempty"`       // Окно напоминания в днях (только для plan-expiring)
}

// Matches сообщает, описывают ли метаданные ту же пару (окончание, окно).
func (m NotificationMeta) Matches(expiresAt time.Time, days int) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Equal(expiresAt) && m.Days == days
}

// Notification одно пользовательское уведомление.
// Записи только добавляются; прочтение меняет лишь флаг IsRead.
type Notification struct {
	ID        int64
	UserUID   string
	Type      string // plan-expired, plan-expiring
	Title     string
	Message   string
	Meta      NotificationMeta
	IsRead    bool
	CreatedAt time.Time
}

// NotificationMessage сообщение для отправителя писем, публикуемое
// в RabbitMQ вместе с сохранением уведомления.
type NotificationMessage struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}
