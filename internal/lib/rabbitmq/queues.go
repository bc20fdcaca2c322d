package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации в обменнике notifications.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Ключи маршрутизации уведомлений подписки.
const (
	// RoutingExpired премиум-доступ закончился.
	RoutingExpired = "expired"
	// RoutingExpiring премиум-доступ скоро закончится.
	RoutingExpiring = "expiring"
)

// GetNotificationQueues возвращает очереди почтовых уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.expired", RoutingKey: RoutingExpired},
		{QueueName: "notifications.expiring", RoutingKey: RoutingExpiring},
	}
}
