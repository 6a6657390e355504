package repository

import (
	"sofra_market/internal/domain/subscription/model"

	"gorm.io/gorm"
)

// SubscriptionRepository 订阅数据访问接口
type SubscriptionRepository interface {
	Create(sub *model.Subscription) error
	GetByUserID(userID string) (*model.Subscription, error)
	Update(sub *model.Subscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByUserID(userID string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := r.db.First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update 整行保存，镜像回写时带上全部字段
func (r *subscriptionRepository) Update(sub *model.Subscription) error {
	return r.db.Save(sub).Error
}
