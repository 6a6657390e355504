package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	dishRepository "sofra_market/internal/domain/dish/repository"
	"sofra_market/internal/domain/order/model"
	"sofra_market/internal/domain/order/repository"
	userRepository "sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/payments"
	"sofra_market/internal/pkg/worker"
	"sofra_market/pkg/logger"
	"sofra_market/pkg/metrics"

	"go.uber.org/zap"
)

// ErrUnauthorized 订单归属校验失败
// 订单不存在和非当事人访问统一返回这个错误，不向外泄露订单是否存在
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotConfirmable 订单当前状态不接受确认
var ErrNotConfirmable = errors.New("order cannot be confirmed in its current status")

// 确认方角色
const (
	ConfirmRoleClient = "client"
	ConfirmRoleCook   = "cook"
)

// OrderService 订单服务接口
type OrderService interface {
	CreateOrder(ctx context.Context, clientID string, input CreateOrderInput) (*CreateOrderResult, error)
	Confirm(ctx context.Context, userID, orderID, asRole string) (*ConfirmResult, error)
	MarkPaid(ctx context.Context, sessionID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, cookID, orderID string, target model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, clientID, orderID string) (*model.Order, error)
	GetOrder(userID, orderID string) (*model.Order, error)
	GetClientOrders(clientID string, page, limit int) ([]model.Order, int64, error)
	GetCookOrders(cookID string, page, limit int) ([]model.Order, int64, error)
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	DishID          string
	Quantity        int
	DeliveryAddress string
	DeliveryNotes   string
	ScheduledAt     *time.Time
}

// CreateOrderResult 下单结果，URL 是托管支付页跳转地址
type CreateOrderResult struct {
	Order     *model.Order
	URL       string
	SessionID string
}

// ConfirmResult 确认结果
// 单方确认返回部分状态，双方确认后携带回执
type ConfirmResult struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message"`
	ClientConfirmed bool           `json:"client_confirmed"`
	CookConfirmed   bool           `json:"cook_confirmed"`
	EscrowReleased  bool           `json:"escrow_released"`
	Receipt         *model.Receipt `json:"receipt,omitempty"`
}

type orderService struct {
	repo     repository.OrderRepository
	dishRepo dishRepository.DishRepository
	userRepo userRepository.UserRepository
	payments payments.Client
	workers  *worker.WorkerPool // 可为 nil（测试环境）
}

// NewOrderService 创建订单服务
func NewOrderService(
	repo repository.OrderRepository,
	dishRepo dishRepository.DishRepository,
	userRepo userRepository.UserRepository,
	pay payments.Client,
	workers *worker.WorkerPool,
) OrderService {
	return &orderService{
		repo:     repo,
		dishRepo: dishRepo,
		userRepo: userRepo,
		payments: pay,
		workers:  workers,
	}
}

// CreateOrder 下单
// 流程：校验菜品 -> 算费用 -> 确保支付客户 -> 落库订单 -> 创建手动捕获的支付会话 -> 回写冻结凭据
// 支付会话创建失败时订单标记为 failed，不留悬空的 pending 记录
func (s *orderService) CreateOrder(ctx context.Context, clientID string, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.Quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}

	dish, err := s.dishRepo.GetByID(input.DishID)
	if err != nil {
		return nil, errors.New("dish not found")
	}
	if !dish.Orderable() {
		return nil, errors.New("dish is not available for ordering")
	}

	client, err := s.userRepo.GetByID(clientID)
	if err != nil {
		return nil, err
	}
	if client.Email == "" {
		return nil, errors.New("email is required before placing an order")
	}

	total := model.RoundMoney(dish.Price * float64(input.Quantity))
	platformFee, cookAmount := model.CalcFees(total)

	customerID, err := s.payments.EnsureCustomer(ctx, client.Email, client.Nickname)
	if err != nil {
		return nil, fmt.Errorf("ensure payment customer: %w", err)
	}

	order := &model.Order{
		ClientID:        clientID,
		CookID:          dish.CookID,
		DishID:          dish.ID,
		DishName:        dish.Name,
		Quantity:        input.Quantity,
		UnitPrice:       dish.Price,
		TotalAmount:     total,
		PlatformFee:     platformFee,
		CookAmount:      cookAmount,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryNotes:   input.DeliveryNotes,
		ScheduledAt:     input.ScheduledAt,
	}
	if err := s.repo.Create(order); err != nil {
		return nil, err
	}

	checkout, err := s.payments.CreateOrderCheckout(ctx, payments.OrderCheckoutParams{
		CustomerID:      customerID,
		ItemName:        dish.Name,
		UnitAmountCents: int64(math.Round(dish.Price * 100)),
		Quantity:        int64(input.Quantity),
		Metadata: map[string]string{
			"order_id":     order.ID,
			"platform_fee": fmt.Sprintf("%.2f", platformFee),
			"cook_amount":  fmt.Sprintf("%.2f", cookAmount),
		},
	})
	if err != nil {
		order.Status = model.OrderStatusFailed
		order.PaymentStatus = model.PaymentStatusFailed
		if updErr := s.repo.Update(order); updErr != nil {
			logger.Log.Error("mark order failed", zap.String("orderID", order.ID), zap.Error(updErr))
		}
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	// 冻结凭据优先存 PaymentIntent ID，会话创建时尚未生成则先存 Session ID
	order.PaymentHoldRef = checkout.PaymentIntentID
	if order.PaymentHoldRef == "" {
		order.PaymentHoldRef = checkout.SessionID
	}
	order.StripeSessionID = checkout.SessionID
	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	metrics.GetGlobalCollector().RecordOrderCreated()
	s.notify(dish.CookID, "طلب جديد", fmt.Sprintf("New order for %s x%d", dish.Name, input.Quantity), order.ID)

	return &CreateOrderResult{Order: order, URL: checkout.URL, SessionID: checkout.SessionID}, nil
}

// MarkPaid 支付完成回跳，订单进入已支付状态（资金处于冻结中）
// 回跳里的 session_id 谁都能拼出来，必须向支付方核验资金确已冻结
func (s *orderService) MarkPaid(ctx context.Context, sessionID string) (*model.Order, error) {
	order, err := s.repo.GetBySessionID(sessionID)
	if err != nil {
		return nil, errors.New("order not found")
	}
	if order.Status != model.OrderStatusPending {
		// 重复回跳，原样返回
		return order, nil
	}

	status, err := s.payments.GetCheckoutStatus(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("verify checkout session: %w", err)
	}
	if !status.FundsHeld {
		return nil, errors.New("payment has not completed")
	}

	order.Status = model.OrderStatusPaid
	order.PaymentStatus = model.PaymentStatusAuthorized
	// 核验时 PaymentIntent 已生成，冻结凭据换成正式的
	if status.PaymentIntentID != "" {
		order.PaymentHoldRef = status.PaymentIntentID
	}
	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	s.notify(order.CookID, "تم الدفع", "Order paid, funds held until completion", order.ID)
	return order, nil
}

// Confirm 双方确认
// 记录本方确认时间戳后重新从数据库读取订单，双方时间戳都存在时才释放资金：
// 捕获冻结资金（容忍已捕获）、生成不可变回执、订单置为已完成。
// 读取-捕获之间不加锁，重复释放是无害的：捕获幂等、回执整行覆盖写
func (s *orderService) Confirm(ctx context.Context, userID, orderID, asRole string) (*ConfirmResult, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		// 订单不存在也按无权限处理
		return nil, ErrUnauthorized
	}

	switch asRole {
	case ConfirmRoleClient:
		if order.ClientID != userID {
			return nil, ErrUnauthorized
		}
	case ConfirmRoleCook:
		if order.CookID != userID {
			return nil, ErrUnauthorized
		}
	default:
		return nil, errors.New("role must be client or cook")
	}

	// 已取消/支付失败/未支付的订单没有可释放的资金，确认无从谈起
	if !order.Confirmable() {
		return nil, fmt.Errorf("%w: %s", ErrNotConfirmable, order.Status)
	}

	now := time.Now()
	if asRole == ConfirmRoleClient && order.ClientConfirmedAt == nil {
		order.ClientConfirmedAt = &now
	}
	if asRole == ConfirmRoleCook && order.CookConfirmedAt == nil {
		order.CookConfirmedAt = &now
	}

	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	// 以落库状态为准重新读取，避免并发确认时漏掉对方的时间戳
	fresh, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if !fresh.BothConfirmed() {
		return &ConfirmResult{
			Success:         true,
			Message:         "confirmation recorded, waiting for the other party",
			ClientConfirmed: fresh.ClientConfirmedAt != nil,
			CookConfirmed:   fresh.CookConfirmedAt != nil,
		}, nil
	}

	if fresh.PaymentStatus == model.PaymentStatusReleased {
		// 已经释放过（重复确认），返回既有回执
		return s.releasedResult(fresh)
	}

	if err := s.payments.CapturePayment(ctx, fresh.PaymentHoldRef); err != nil {
		return nil, fmt.Errorf("capture payment: %w", err)
	}

	releasedAt := time.Now()
	receipt := model.Receipt{
		OrderID:         fresh.ID,
		DishName:        fresh.DishName,
		Quantity:        fresh.Quantity,
		UnitPrice:       fresh.UnitPrice,
		TotalAmount:     fresh.TotalAmount,
		PlatformFee:     fresh.PlatformFee,
		CookAmount:      fresh.CookAmount,
		ClientConfirmed: *fresh.ClientConfirmedAt,
		CookConfirmed:   *fresh.CookConfirmedAt,
		ReleasedAt:      releasedAt,
	}
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return nil, err
	}

	fresh.Status = model.OrderStatusCompleted
	fresh.PaymentStatus = model.PaymentStatusReleased
	fresh.ReleasedAt = &releasedAt
	fresh.ReceiptGeneratedAt = &releasedAt
	fresh.Receipt = receiptJSON
	if err := s.repo.Update(fresh); err != nil {
		return nil, err
	}

	metrics.GetGlobalCollector().RecordEscrowReleased()
	s.notify(fresh.CookID, "تم تحويل المبلغ", fmt.Sprintf("Payment of %.2f released", fresh.CookAmount), fresh.ID)
	s.notify(fresh.ClientID, "اكتمل الطلب", "Order completed, thank you", fresh.ID)

	return &ConfirmResult{
		Success:         true,
		Message:         "order completed, payment released",
		ClientConfirmed: true,
		CookConfirmed:   true,
		EscrowReleased:  true,
		Receipt:         &receipt,
	}, nil
}

// releasedResult 从已释放的订单还原确认结果
func (s *orderService) releasedResult(order *model.Order) (*ConfirmResult, error) {
	var receipt model.Receipt
	if len(order.Receipt) > 0 {
		if err := json.Unmarshal(order.Receipt, &receipt); err != nil {
			return nil, err
		}
	}
	return &ConfirmResult{
		Success:         true,
		Message:         "order completed, payment released",
		ClientConfirmed: true,
		CookConfirmed:   true,
		EscrowReleased:  true,
		Receipt:         &receipt,
	}, nil
}

// UpdateStatus 家厨推进订单状态，按流转表校验
func (s *orderService) UpdateStatus(ctx context.Context, cookID, orderID string, target model.OrderStatus) (*model.Order, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if order.CookID != cookID {
		return nil, ErrUnauthorized
	}
	if !order.CanTransition(target) {
		return nil, fmt.Errorf("cannot move order from %s to %s", order.Status, target)
	}

	// 家厨取消已支付订单时同样要撤销冻结，资金立即退回客户
	if target == model.OrderStatusCancelled {
		if err := s.voidHold(ctx, order); err != nil {
			return nil, err
		}
	}

	order.Status = target
	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	s.notify(order.ClientID, "تحديث الطلب", fmt.Sprintf("Order is now %s", target), order.ID)
	return order, nil
}

// CancelOrder 客户取消订单，资金捕获前可取消
func (s *orderService) CancelOrder(ctx context.Context, clientID, orderID string) (*model.Order, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if order.ClientID != clientID {
		return nil, ErrUnauthorized
	}
	if !order.Cancellable() {
		return nil, fmt.Errorf("order in status %s cannot be cancelled", order.Status)
	}

	if err := s.voidHold(ctx, order); err != nil {
		return nil, err
	}

	order.Status = model.OrderStatusCancelled
	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	s.notify(order.CookID, "تم إلغاء الطلب", "Order was cancelled by the client", order.ID)
	return order, nil
}

// voidHold 撤销冻结中的资金
// 未冻结（取消时还没付）或已失败的订单没有可撤销的资金，直接跳过
func (s *orderService) voidHold(ctx context.Context, order *model.Order) error {
	if order.PaymentStatus != model.PaymentStatusAuthorized || order.PaymentHoldRef == "" {
		return nil
	}
	if err := s.payments.CancelPayment(ctx, order.PaymentHoldRef); err != nil {
		return fmt.Errorf("cancel payment hold: %w", err)
	}
	order.PaymentStatus = model.PaymentStatusCancelled
	return nil
}

// GetOrder 订单详情，只有当事双方可见
func (s *orderService) GetOrder(userID, orderID string) (*model.Order, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if order.ClientID != userID && order.CookID != userID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

func (s *orderService) GetClientOrders(clientID string, page, limit int) ([]model.Order, int64, error) {
	offset := (page - 1) * limit
	return s.repo.ListByClient(clientID, offset, limit)
}

func (s *orderService) GetCookOrders(cookID string, page, limit int) ([]model.Order, int64, error) {
	offset := (page - 1) * limit
	return s.repo.ListByCook(cookID, offset, limit)
}

// notify 投递异步通知，失败不影响主流程
func (s *orderService) notify(accountID, title, body, orderID string) {
	if s.workers == nil {
		return
	}
	s.workers.Submit(worker.NotificationTask{
		AccountID: accountID,
		Title:     title,
		Body:      body,
		Extra:     map[string]string{"order_id": orderID},
	})
}
