package service

import (
	"errors"

	orderModel "sofra_market/internal/domain/order/model"
	orderRepository "sofra_market/internal/domain/order/repository"
	"sofra_market/internal/domain/review/model"
	"sofra_market/internal/domain/review/repository"
)

// ErrNotAllowed 评价前置条件不满足
var ErrNotAllowed = errors.New("only the client of a completed order can review it")

// ErrDuplicate 订单已有评价
var ErrDuplicate = errors.New("order already reviewed")

// ReviewService 评价服务接口
type ReviewService interface {
	CreateReview(clientID, orderID string, rating int, comment string) (*model.Review, error)
	GetProviderReviews(providerID string, page, limit int) ([]model.Review, int64, error)
	GetDishReviews(dishID string, page, limit int) ([]model.Review, int64, error)
	GetProviderStats(providerID string) (*model.ProviderStats, error)
}

type reviewService struct {
	repo      repository.ReviewRepository
	orderRepo orderRepository.OrderRepository
}

// NewReviewService 创建评价服务
func NewReviewService(repo repository.ReviewRepository, orderRepo orderRepository.OrderRepository) ReviewService {
	return &reviewService{repo: repo, orderRepo: orderRepo}
}

// CreateReview 创建评价
// 只有已完成订单的下单客户可以评价，每个订单一条
func (s *reviewService) CreateReview(clientID, orderID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrNotAllowed
	}
	if order.ClientID != clientID {
		return nil, ErrNotAllowed
	}
	if order.Status != orderModel.OrderStatusCompleted {
		return nil, ErrNotAllowed
	}

	if _, err := s.repo.GetByOrderID(orderID); err == nil {
		return nil, ErrDuplicate
	}

	review := &model.Review{
		OrderID:    orderID,
		ClientID:   clientID,
		ProviderID: order.CookID,
		DishID:     order.DishID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) GetProviderReviews(providerID string, page, limit int) ([]model.Review, int64, error) {
	offset := (page - 1) * limit
	return s.repo.ListByProvider(providerID, offset, limit)
}

func (s *reviewService) GetDishReviews(dishID string, page, limit int) ([]model.Review, int64, error) {
	offset := (page - 1) * limit
	return s.repo.ListByDish(dishID, offset, limit)
}

func (s *reviewService) GetProviderStats(providerID string) (*model.ProviderStats, error) {
	return s.repo.ProviderStats(providerID)
}
