package enums

// OutboxEventType names the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderConfirmed     OutboxEventType = "order.confirmed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventPaymentFailed      OutboxEventType = "order.payment_failed"
	EventReservationExpired OutboxEventType = "order.reservation_expired"
	EventOrderShipped       OutboxEventType = "order.shipped"
	EventOrderDelivered     OutboxEventType = "order.delivered"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxStatus tracks publication state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)
