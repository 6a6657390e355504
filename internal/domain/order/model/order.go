package model

import (
	"encoding/json"
	"math"
	"time"

	baseModel "sofra_market/pkg/model"
)

// OrderStatus 订单状态（封闭枚举，不接受任意字符串）
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // 已创建，等待支付
	OrderStatusPaid      OrderStatus = "paid"      // 资金已冻结
	OrderStatusPreparing OrderStatus = "preparing" // 家厨制作中
	OrderStatusReady     OrderStatus = "ready"     // 待取餐/待配送
	OrderStatusDelivered OrderStatus = "delivered" // 已送达，等待双方确认
	OrderStatusCompleted OrderStatus = "completed" // 双方确认完成，资金已划转
	OrderStatusCancelled OrderStatus = "cancelled" // 已取消
	OrderStatusFailed    OrderStatus = "failed"    // 创建支付会话失败
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"    // 未支付
	PaymentStatusAuthorized PaymentStatus = "authorized" // 已冻结（手动捕获模式）
	PaymentStatusReleased   PaymentStatus = "released"   // 已划转给家厨
	PaymentStatusCancelled  PaymentStatus = "cancelled"  // 冻结已撤销，资金退回客户
	PaymentStatusFailed     PaymentStatus = "failed"     // 支付失败
)

// PlatformFeeRate 平台抽成比例
const PlatformFeeRate = 0.10

// Order 订单模型
// 金额三元组（总额/平台费/家厨所得）在下单时一次算定并落库，
// 后续对账和回执都读落库值，不再重算
type Order struct {
	baseModel.BaseModel
	ClientID   string  `gorm:"type:uuid;index;not null" json:"clientId"`
	CookID     string  `gorm:"type:uuid;index;not null" json:"cookId"`
	DishID     string  `gorm:"type:uuid;not null" json:"dishId"`
	DishName   string  `gorm:"not null" json:"dishName"` // 下单时的菜名快照
	Quantity   int     `gorm:"not null" json:"quantity"`
	UnitPrice  float64 `gorm:"not null" json:"unitPrice"` // 下单时的单价快照
	TotalAmount float64 `gorm:"not null" json:"totalAmount"`
	PlatformFee float64 `gorm:"not null" json:"platformFee"`
	CookAmount  float64 `gorm:"not null" json:"cookAmount"`

	Status        OrderStatus   `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"paymentStatus"`

	// 双方确认时间戳，资金释放的唯一依据
	ClientConfirmedAt *time.Time `json:"clientConfirmedAt,omitempty"`
	CookConfirmedAt   *time.Time `json:"cookConfirmedAt,omitempty"`

	PaymentHoldRef  string `json:"-"` // PaymentIntent ID，会话未就绪时暂存 Session ID
	StripeSessionID string `json:"-"`

	DeliveryAddress string     `json:"deliveryAddress"`
	DeliveryNotes   string     `json:"deliveryNotes"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`

	ReleasedAt         *time.Time      `json:"releasedAt,omitempty"`
	ReceiptGeneratedAt *time.Time      `json:"receiptGeneratedAt,omitempty"`
	Receipt            json.RawMessage `gorm:"type:jsonb" json:"receipt,omitempty"` // 不可变回执快照
}

func (Order) TableName() string {
	return "orders"
}

// Receipt 订单完成回执
// 生成后不再修改，金额取订单落库值
type Receipt struct {
	OrderID         string    `json:"orderId"`
	DishName        string    `json:"dishName"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unitPrice"`
	TotalAmount     float64   `json:"totalAmount"`
	PlatformFee     float64   `json:"platformFee"`
	CookAmount      float64   `json:"cookAmount"`
	ClientConfirmed time.Time `json:"clientConfirmed"`
	CookConfirmed   time.Time `json:"cookConfirmed"`
	ReleasedAt      time.Time `json:"releasedAt"`
}

// RoundMoney 金额四舍五入到分（半分进位）
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// CalcFees 按总价计算平台费和家厨所得
// 平台费 = 总价 * 10%，四舍五入到分；家厨所得 = 总价 - 平台费，
// 保证两者相加恒等于总价
func CalcFees(total float64) (platformFee, cookAmount float64) {
	platformFee = RoundMoney(total * PlatformFeeRate)
	cookAmount = RoundMoney(total - platformFee)
	return platformFee, cookAmount
}

// BothConfirmed 双方是否都已确认
func (o *Order) BothConfirmed() bool {
	return o.ClientConfirmedAt != nil && o.CookConfirmedAt != nil
}

// cookTransitions 家厨可发起的状态流转
var cookTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPaid:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady},
	OrderStatusReady:     {OrderStatusDelivered},
}

// CanTransition 家厨是否可以把订单从当前状态流转到目标状态
func (o *Order) CanTransition(target OrderStatus) bool {
	for _, s := range cookTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Cancellable 客户是否还能取消
// 资金捕获前可取消，已冻结的资金在取消时撤销退回
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPaid
}

// Confirmable 订单是否已进入确认流程
// 未支付、已取消、支付失败的订单不存在可释放的资金，不接受确认
func (o *Order) Confirmable() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusCancelled, OrderStatusFailed:
		return false
	}
	return true
}
