package models

import (
	"encoding/json"
	"time"
)

// Статусы отложенного задания.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobKindTrialCharge конвертация пробного периода в оплаченный.
const JobKindTrialCharge = "trial-charge"

// DeferredJob отложенное одноразовое задание "выполнить операцию в момент T".
// Хранится в базе, а не в памяти процесса: диспетчер забирает созревшие
// задания по расписанию, поэтому перезапуск процесса их не теряет.
// Доставка at-least-once; идемпотентность самой операции закрывает повторы.
type DeferredJob struct {
	ID        int64
	Kind      string // Тип операции, например trial-charge
	RunAt     time.Time
	Status    string // pending, running, done, failed
	Attempts  int
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrialChargePayload полезная нагрузка задания trial-charge.
type TrialChargePayload struct {
	UserUID        string    `json:"user_uid"`
	Plan           Plan      `json:"plan"`
	TrialEndsAt    time.Time `json:"trial_ends_at"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
}
