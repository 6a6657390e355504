package repository

import (
	"sofra_market/internal/domain/order/model"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *model.Order) error
	GetByID(id string) (*model.Order, error)
	GetBySessionID(sessionID string) (*model.Order, error)
	ListByClient(clientID string, offset, limit int) ([]model.Order, int64, error)
	ListByCook(cookID string, offset, limit int) ([]model.Order, int64, error)
	Update(order *model.Order) error
	HasCompletedOrder(clientID, cookID string) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetBySessionID 支付回跳时按支付会话 ID 定位订单
func (r *orderRepository) GetBySessionID(sessionID string) (*model.Order, error) {
	var order model.Order
	if err := r.db.First(&order, "stripe_session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByClient(clientID string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := r.db.Model(&model.Order{}).Where("client_id = ?", clientID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListByCook(cookID string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := r.db.Model(&model.Order{}).Where("cook_id = ?", cookID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Update 整行保存
// 确认/释放流程每次都先重查再整行写回，避免部分字段更新导致金额和状态不一致
func (r *orderRepository) Update(order *model.Order) error {
	return r.db.Save(order).Error
}

// HasCompletedOrder 客户和家厨之间是否有已完成订单（评价前置条件）
func (r *orderRepository) HasCompletedOrder(clientID, cookID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Order{}).
		Where("client_id = ? AND cook_id = ? AND status = ?", clientID, cookID, model.OrderStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
