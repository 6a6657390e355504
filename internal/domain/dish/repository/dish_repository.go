package repository

import (
	"sofra_market/internal/domain/dish/model"

	"gorm.io/gorm"
)

// DishRepository 菜品数据访问接口
type DishRepository interface {
	Create(dish *model.Dish) error
	GetByID(id string) (*model.Dish, error)
	ListApproved(category string, offset, limit int) ([]model.Dish, int64, error)
	ListByCook(cookID string, offset, limit int) ([]model.Dish, int64, error)
	ListPending(offset, limit int) ([]model.Dish, int64, error)
	Update(dish *model.Dish) error
}

type dishRepository struct {
	db *gorm.DB
}

func NewDishRepository(db *gorm.DB) DishRepository {
	return &dishRepository{db: db}
}

func (r *dishRepository) Create(dish *model.Dish) error {
	return r.db.Create(dish).Error
}

func (r *dishRepository) GetByID(id string) (*model.Dish, error) {
	var dish model.Dish
	if err := r.db.First(&dish, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dish, nil
}

// ListApproved 公开浏览列表，只返回审核通过且在售的菜品
func (r *dishRepository) ListApproved(category string, offset, limit int) ([]model.Dish, int64, error) {
	var dishes []model.Dish
	var total int64

	query := r.db.Model(&model.Dish{}).
		Where("status = ? AND available = ?", model.DishStatusApproved, true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&dishes).Error; err != nil {
		return nil, 0, err
	}

	return dishes, total, nil
}

func (r *dishRepository) ListByCook(cookID string, offset, limit int) ([]model.Dish, int64, error) {
	var dishes []model.Dish
	var total int64

	query := r.db.Model(&model.Dish{}).Where("cook_id = ?", cookID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&dishes).Error; err != nil {
		return nil, 0, err
	}

	return dishes, total, nil
}

// ListPending 管理员审核队列
func (r *dishRepository) ListPending(offset, limit int) ([]model.Dish, int64, error) {
	var dishes []model.Dish
	var total int64

	query := r.db.Model(&model.Dish{}).Where("status = ?", model.DishStatusPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at ASC").Find(&dishes).Error; err != nil {
		return nil, 0, err
	}

	return dishes, total, nil
}

func (r *dishRepository) Update(dish *model.Dish) error {
	return r.db.Save(dish).Error
}
