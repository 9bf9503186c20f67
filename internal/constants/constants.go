package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 店铺状态常量
const (
	ShopStatusActive = "active"
	ShopStatusClosed = "closed"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 订单号前缀
const OrderNoPrefix = "MC"
