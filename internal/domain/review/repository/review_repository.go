package repository

import (
	"sofra_market/internal/domain/review/model"

	"gorm.io/gorm"
)

// ReviewRepository 评价数据访问接口
type ReviewRepository interface {
	Create(review *model.Review) error
	GetByOrderID(orderID string) (*model.Review, error)
	ListByProvider(providerID string, offset, limit int) ([]model.Review, int64, error)
	ListByDish(dishID string, offset, limit int) ([]model.Review, int64, error)
	ProviderStats(providerID string) (*model.ProviderStats, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *model.Review) error {
	return r.db.Create(review).Error
}

func (r *reviewRepository) GetByOrderID(orderID string) (*model.Review, error) {
	var review model.Review
	if err := r.db.First(&review, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByProvider(providerID string, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.Model(&model.Review{}).Where("provider_id = ?", providerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) ListByDish(dishID string, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.Model(&model.Review{}).Where("dish_id = ?", dishID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// ProviderStats 服务商平均分和评价数，没有评价时返回零值
func (r *reviewRepository) ProviderStats(providerID string) (*model.ProviderStats, error) {
	stats := &model.ProviderStats{ProviderID: providerID}
	err := r.db.Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS review_count").
		Where("provider_id = ?", providerID).
		Scan(stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
