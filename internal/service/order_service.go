package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/mercato-next/internal/cache"
	"github.com/mercato-next/internal/constants"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/queue"
	"github.com/mercato-next/internal/repository"
	"github.com/mercato-next/internal/uow"

	"github.com/shopspring/decimal"
)

// TimeoutScheduler 订单超时取消任务投递
type TimeoutScheduler interface {
	EnqueueOrderTimeoutCancel(ctx context.Context, payload queue.OrderTimeoutCancelPayload, delay time.Duration) error
	DeleteOrderTimeoutCancel(ctx context.Context, orderID uint) error
}

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	itemRepo      repository.OrderItemRepository
	uowFactory    *uow.Factory
	scheduler     TimeoutScheduler
	listCache     *cache.ListCache
	metrics       *metrics.Metrics
	expireMinutes int
	createOrder   uow.Composite[CreateOrderInput, *models.Order]
	cancelOrder   uow.Composite[cancelOrderRequest, cancelOrderResult]
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, itemRepo repository.OrderItemRepository, uowFactory *uow.Factory, scheduler TimeoutScheduler, listCache *cache.ListCache, m *metrics.Metrics, expireMinutes int) *OrderService {
	if expireMinutes <= 0 {
		expireMinutes = 15
	}
	s := &OrderService{
		orderRepo:     orderRepo,
		itemRepo:      itemRepo,
		uowFactory:    uowFactory,
		scheduler:     scheduler,
		listCache:     listCache,
		metrics:       m,
		expireMinutes: expireMinutes,
	}
	s.createOrder = uow.Composite[CreateOrderInput, *models.Order]{
		Name:       "create_order_with_items",
		Invariants: createOrderInvariants(),
		Write:      s.writeOrderWithItems,
	}
	s.cancelOrder = uow.Composite[cancelOrderRequest, cancelOrderResult]{
		Name:  "change_order_status",
		Write: s.writeOrderStatus,
	}
	return s
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	ShopID        uint
	CustomerEmail string
	Currency      string
	TotalAmount   models.Money
	Items         []CreateOrderItem
}

// CreateOrderItem 创建订单项输入
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
	UnitPrice models.Money
	Amount    models.Money
}

func createOrderInvariants() []uow.Invariant[CreateOrderInput] {
	return []uow.Invariant[CreateOrderInput]{
		{Name: "shop_required", Check: func(in CreateOrderInput) error {
			if in.ShopID == 0 {
				return errors.New("shop_id is required")
			}
			return nil
		}},
		{Name: "customer_email_valid", Check: func(in CreateOrderInput) error {
			if _, err := mail.ParseAddress(strings.TrimSpace(in.CustomerEmail)); err != nil {
				return fmt.Errorf("customer_email %q is not a valid address", in.CustomerEmail)
			}
			return nil
		}},
		{Name: "items_required", Check: func(in CreateOrderInput) error {
			if len(in.Items) == 0 {
				return errors.New("order must contain at least one item")
			}
			return nil
		}},
		{Name: "line_amounts", Check: checkLineAmounts},
		{Name: "total_matches_items", Check: checkTotalMatchesItems},
		{Name: "unique_products", Check: checkUniqueProducts},
	}
}

// checkLineAmounts 每行金额必须等于单价乘数量
func checkLineAmounts(in CreateOrderInput) error {
	for i, item := range in.Items {
		if item.ProductID == 0 {
			return fmt.Errorf("item %d has no product_id", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d quantity must be positive", i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d unit_price must not be negative", i)
		}
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		if !item.Amount.Equal(expected) {
			return fmt.Errorf("item %d amount %s differs from %s x %d", i, item.Amount, item.UnitPrice, item.Quantity)
		}
	}
	return nil
}

// checkTotalMatchesItems 订单总额必须与订单项金额之和严格相等
func checkTotalMatchesItems(in CreateOrderInput) error {
	amounts := make([]models.Money, 0, len(in.Items))
	for _, item := range in.Items {
		amounts = append(amounts, item.Amount)
	}
	sum := models.SumMoney(amounts...)
	if !sum.Equal(in.TotalAmount.Decimal) {
		return fmt.Errorf("total_amount %s differs from item sum %s", in.TotalAmount, sum)
	}
	return nil
}

// checkUniqueProducts 同一订单内商品不可重复
func checkUniqueProducts(in CreateOrderInput) error {
	seen := make(map[uint]struct{}, len(in.Items))
	for _, item := range in.Items {
		if _, ok := seen[item.ProductID]; ok {
			return fmt.Errorf("product %d appears more than once", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// CreateOrderWithItems 在一个事务内创建订单与全部订单项，只返回订单本身
func (s *OrderService) CreateOrderWithItems(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	order, err := s.createOrder.Run(ctx, s.uowFactory.New(), input)
	if err != nil {
		logger.Warnw("order_composite_failed",
			"shop_id", input.ShopID,
			"item_count", len(input.Items),
			"error", err,
		)
		return nil, err
	}

	logger.Infow("order_created", "order_id", order.ID, "order_no", order.OrderNo, "item_count", len(input.Items))
	s.listCache.Invalidate(ctx, query.EntityProduct)
	s.scheduleTimeoutCancel(ctx, order)
	return order, nil
}

func (s *OrderService) writeOrderWithItems(ctx context.Context, c *uow.Coordinator, input CreateOrderInput) (*models.Order, error) {
	shops, err := c.Shops()
	if err != nil {
		return nil, err
	}
	shop, err := shops.GetByID(ctx, input.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil || shop.Status != constants.ShopStatusActive {
		return nil, uow.Violation("shop_active", "shop %d is not open for orders", input.ShopID)
	}

	products, err := c.Products()
	if err != nil {
		return nil, err
	}
	if err := checkCatalog(ctx, products, input); err != nil {
		return nil, err
	}

	orders, err := c.Orders()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expireMinutes) * time.Minute)
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "CNY"
	}
	order := &models.Order{
		OrderNo:       generateOrderNo(),
		ShopID:        input.ShopID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		Status:        constants.OrderStatusPendingPayment,
		Currency:      currency,
		TotalAmount:   models.NewMoneyFromDecimal(input.TotalAmount.Decimal),
		ExpiresAt:     &expiresAt,
	}
	if err := orders.Create(ctx, order); err != nil {
		return nil, err
	}

	items, err := c.OrderItems()
	if err != nil {
		return nil, err
	}
	for _, line := range input.Items {
		item := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: models.NewMoneyFromDecimal(line.UnitPrice.Decimal),
			Amount:    models.NewMoneyFromDecimal(line.Amount.Decimal),
		}
		if err := items.Create(ctx, item); err != nil {
			return nil, err
		}
		affected, err := products.ReserveStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, uow.Violation("stock_available", "product %d has less than %d in stock", line.ProductID, line.Quantity)
		}
	}
	return order, nil
}

// checkCatalog 商品必须存在、属于该店铺、已上架且单价与目录一致
func checkCatalog(ctx context.Context, products repository.ProductRepository, input CreateOrderInput) error {
	ids := make([]uint, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}
	rows, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uint]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, item := range input.Items {
		product, ok := byID[item.ProductID]
		if !ok || product.ShopID != input.ShopID || !product.IsActive {
			return uow.Violation("products_available", "product %d is not available in shop %d", item.ProductID, input.ShopID)
		}
		if !product.Price.Equal(item.UnitPrice.Decimal) {
			return uow.Violation("price_matches_catalog", "product %d costs %s, not %s", item.ProductID, product.Price, item.UnitPrice)
		}
	}
	return nil
}

func (s *OrderService) scheduleTimeoutCancel(ctx context.Context, order *models.Order) {
	if s.scheduler == nil || order == nil {
		return
	}
	delay := time.Duration(s.expireMinutes) * time.Minute
	err := s.scheduler.EnqueueOrderTimeoutCancel(ctx, queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay)
	s.metrics.ObserveEnqueue(queue.TaskOrderTimeoutCancel, err)
	if err != nil {
		logger.Warnw("order_enqueue_timeout_cancel_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

// dropTimeoutCancel 订单离开待支付后删除排队中的超时任务，失败时由任务自身的状态检查兜底
func (s *OrderService) dropTimeoutCancel(ctx context.Context, orderID uint) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.DeleteOrderTimeoutCancel(ctx, orderID); err != nil {
		logger.Warnw("order_delete_timeout_cancel_failed", "order_id", orderID, "error", err)
	}
}

type cancelOrderRequest struct {
	OrderID       uint
	Status        string
	OnlyIfExpired bool
	Now           time.Time
}

type cancelOrderResult struct {
	Found    bool
	Changed  bool
	Previous string
	Order    *models.Order
}

// CancelExpiredOrder 取消超时未支付订单并回补库存，已支付或未过期的订单保持不变
func (s *OrderService) CancelExpiredOrder(ctx context.Context, orderID uint) (bool, error) {
	result, err := s.cancelOrder.Run(ctx, s.uowFactory.New(), cancelOrderRequest{
		OrderID:       orderID,
		Status:        constants.OrderStatusCanceled,
		OnlyIfExpired: true,
		Now:           time.Now(),
	})
	if err != nil {
		return false, err
	}
	if !result.Found {
		return false, ErrOrderNotFound
	}
	if result.Changed {
		logger.Infow("order_timeout_canceled", "order_id", orderID)
		s.listCache.Invalidate(ctx, query.EntityProduct)
	}
	return result.Changed, nil
}

// SweepExpiredOrders 兜底取消已过期但未收到超时任务的订单，返回取消数量
func (s *OrderService) SweepExpiredOrders(ctx context.Context, limit int) (int, error) {
	ids, err := s.orderRepo.ListExpiredIDs(ctx, constants.OrderStatusPendingPayment, time.Now(), limit)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for _, id := range ids {
		changed, err := s.CancelExpiredOrder(ctx, id)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				continue
			}
			return canceled, err
		}
		if changed {
			canceled++
		}
	}
	return canceled, nil
}

// UpdateOrderStatus 管理端修改订单状态
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	result, err := s.cancelOrder.Run(ctx, s.uowFactory.New(), cancelOrderRequest{
		OrderID: orderID,
		Status:  status,
		Now:     time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, ErrOrderNotFound
	}
	if !result.Changed {
		return nil, ErrOrderStatusInvalid
	}
	if status == constants.OrderStatusCanceled {
		s.listCache.Invalidate(ctx, query.EntityProduct)
	}
	if result.Previous == constants.OrderStatusPendingPayment {
		s.dropTimeoutCancel(ctx, orderID)
	}
	return result.Order, nil
}

func (s *OrderService) writeOrderStatus(ctx context.Context, c *uow.Coordinator, req cancelOrderRequest) (cancelOrderResult, error) {
	orders, err := c.Orders()
	if err != nil {
		return cancelOrderResult{}, err
	}
	order, err := orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return cancelOrderResult{}, err
	}
	if order == nil {
		return cancelOrderResult{}, nil
	}
	result := cancelOrderResult{Found: true, Previous: order.Status, Order: order}
	if !canTransitOrderStatus(order.Status, req.Status) {
		return result, nil
	}
	if req.OnlyIfExpired && (order.Status != constants.OrderStatusPendingPayment ||
		(order.ExpiresAt != nil && order.ExpiresAt.After(req.Now))) {
		return result, nil
	}

	updates := map[string]interface{}{"updated_at": req.Now}
	if req.Status == constants.OrderStatusCanceled {
		updates["canceled_at"] = req.Now
	}
	affected, err := orders.UpdateStatus(ctx, order.ID, order.Status, req.Status, updates)
	if err != nil {
		return cancelOrderResult{}, err
	}
	if affected == 0 {
		return result, nil
	}

	if releasesStock(order.Status, req.Status) {
		products, err := c.Products()
		if err != nil {
			return cancelOrderResult{}, err
		}
		for _, item := range order.Items {
			if _, err := products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return cancelOrderResult{}, err
			}
		}
	}
	order.Status = req.Status
	if req.Status == constants.OrderStatusCanceled {
		canceledAt := req.Now
		order.CanceledAt = &canceledAt
	}
	result.Changed = true
	return result, nil
}

// GetOrder 获取订单详情（含订单项）
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderForGuest 按订单号与下单邮箱查询订单，邮箱不匹配时视为不存在
func (s *OrderService) GetOrderForGuest(ctx context.Context, orderNo, email string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	email = strings.ToLower(strings.TrimSpace(email))
	if orderNo == "" || email == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.CustomerEmail != email {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(ctx context.Context, env query.Envelope) (query.PageResult[models.Order], error) {
	rows, total, err := s.orderRepo.FindAll(ctx, env)
	if err != nil {
		return query.PageResult[models.Order]{}, err
	}
	return query.NewPageResult(rows, total), nil
}

// ListOrderItems 订单项列表
func (s *OrderService) ListOrderItems(ctx context.Context, env query.Envelope) (query.PageResult[models.OrderItem], error) {
	rows, total, err := s.itemRepo.FindAll(ctx, env)
	if err != nil {
		return query.PageResult[models.OrderItem]{}, err
	}
	return query.NewPageResult(rows, total), nil
}

// DeleteOrder 删除订单
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	return s.orderRepo.Delete(ctx, id)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("%s%s%s", constants.OrderNoPrefix, now, randPart)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
