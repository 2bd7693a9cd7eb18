package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RoutingKeyPaymentCompleted — ключ событий об успешных платежах.
const RoutingKeyPaymentCompleted = "payment.completed"

// GetReceiptQueues возвращает очереди воркера квитанций.
func GetReceiptQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "receipt.completed", RoutingKey: RoutingKeyPaymentCompleted},
	}
}
