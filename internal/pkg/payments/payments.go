package payments

import (
	"context"
	"time"
)

// Client 支付服务客户端接口
// 订单和订阅模块都依赖这个接口，具体实现由 Stripe 提供
// 通过 ModuleContext 注入，便于在测试中替换为 mock
type Client interface {
	// EnsureCustomer 按邮箱查找支付客户，不存在则创建，返回客户 ID
	EnsureCustomer(ctx context.Context, email, name string) (string, error)

	// FindCustomerByEmail 按邮箱查找支付客户，不存在返回空字符串（不报错）
	FindCustomerByEmail(ctx context.Context, email string) (string, error)

	// CreateOrderCheckout 创建订单支付会话（手动捕获，资金先冻结后划转）
	CreateOrderCheckout(ctx context.Context, p OrderCheckoutParams) (*CheckoutResult, error)

	// CapturePayment 捕获冻结的资金
	// holdRef 可以是 PaymentIntent ID 或 Checkout Session ID
	// 已捕获的资金重复调用视为成功（幂等）
	CapturePayment(ctx context.Context, holdRef string) error

	// CancelPayment 撤销未捕获的冻结资金，退回客户
	// 已撤销的重复调用视为成功（幂等）
	CancelPayment(ctx context.Context, holdRef string) error

	// GetCheckoutStatus 查询支付会话的资金冻结状态
	// 回跳参数不可信，标记订单已支付前必须经这里核验
	GetCheckoutStatus(ctx context.Context, sessionID string) (*CheckoutStatus, error)

	// LatestSubscription 获取客户最近一个订阅，没有返回 nil（不报错）
	LatestSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error)

	// CreateSubscriptionCheckout 创建订阅支付会话（带试用期），返回跳转 URL
	CreateSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (string, error)
}

// OrderCheckoutParams 订单支付会话参数
type OrderCheckoutParams struct {
	CustomerID      string
	ItemName        string
	UnitAmountCents int64 // 单价，货币最小单位
	Quantity        int64
	Metadata        map[string]string // 订单 ID + 费用拆分，便于对账
}

// CheckoutResult 支付会话创建结果
type CheckoutResult struct {
	SessionID       string
	PaymentIntentID string // 部分场景下会话创建时尚未生成，可能为空
	URL             string // 托管支付页跳转地址
}

// CheckoutStatus 支付会话核验结果
type CheckoutStatus struct {
	PaymentIntentID string
	FundsHeld       bool // 资金是否已冻结（手动捕获已授权或已捕获）
}

// SubscriptionInfo 订阅信息快照
type SubscriptionInfo struct {
	ID        string
	Status    string // Stripe 原始状态: active, trialing, past_due, canceled...
	PeriodEnd time.Time
}

// SubscriptionCheckoutParams 订阅支付会话参数
type SubscriptionCheckoutParams struct {
	CustomerID string
	PriceID    string
	TrialDays  int64
}
