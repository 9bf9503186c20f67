package service

import (
	"strings"

	"github.com/mercato-next/internal/constants"
)

var orderStatusTransitions = map[string][]string{
	constants.OrderStatusPendingPayment: {constants.OrderStatusPaid, constants.OrderStatusCanceled},
	constants.OrderStatusPaid:           {constants.OrderStatusCompleted, constants.OrderStatusCanceled},
}

// canTransitOrderStatus 判断订单状态能否流转
func canTransitOrderStatus(from, to string) bool {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	for _, next := range orderStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// releasesStock 取消未完成的订单需要回补库存
func releasesStock(from, to string) bool {
	return to == constants.OrderStatusCanceled &&
		(from == constants.OrderStatusPendingPayment || from == constants.OrderStatusPaid)
}
