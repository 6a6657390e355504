package service

import (
	"encoding/json"
	"errors"

	"sofra_market/internal/domain/dish/model"
	"sofra_market/internal/domain/dish/repository"
	userModel "sofra_market/internal/domain/user/model"
	userRepository "sofra_market/internal/domain/user/repository"
)

// DishService 菜品服务接口
type DishService interface {
	CreateDish(cookID string, input CreateDishInput) (*model.Dish, error)
	GetDish(id string) (*model.Dish, error)
	BrowseDishes(category string, page, limit int) ([]model.Dish, int64, error)
	GetCookDishes(cookID string, page, limit int) ([]model.Dish, int64, error)
	UpdateDish(cookID, dishID string, input CreateDishInput) (*model.Dish, error)
	SetAvailability(cookID, dishID string, available bool) (*model.Dish, error)
	GetPendingDishes(page, limit int) ([]model.Dish, int64, error)
	Moderate(dishID string, approve bool) (*model.Dish, error)
}

// CreateDishInput 创建/更新菜品输入
type CreateDishInput struct {
	Name        string
	NameEn      string
	Description string
	Price       float64
	Category    string
	ImageURLs   []string
}

type dishService struct {
	repo     repository.DishRepository
	userRepo userRepository.UserRepository
}

// NewDishService 创建菜品服务
func NewDishService(repo repository.DishRepository, userRepo userRepository.UserRepository) DishService {
	return &dishService{repo: repo, userRepo: userRepo}
}

// CreateDish 创建菜品，只有家厨角色可以创建，新菜品进入审核队列
func (s *dishService) CreateDish(cookID string, input CreateDishInput) (*model.Dish, error) {
	cook, err := s.userRepo.GetByID(cookID)
	if err != nil {
		return nil, err
	}
	if cook.Role != userModel.RoleHomeCook {
		return nil, errors.New("only home cooks can create dishes")
	}
	if input.Price <= 0 {
		return nil, errors.New("price must be positive")
	}

	imagesJSON, _ := json.Marshal(input.ImageURLs)
	dish := &model.Dish{
		CookID:      cookID,
		Name:        input.Name,
		NameEn:      input.NameEn,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURLs:   imagesJSON,
		Available:   true,
		Status:      model.DishStatusPending,
	}

	if err := s.repo.Create(dish); err != nil {
		return nil, err
	}
	return dish, nil
}

func (s *dishService) GetDish(id string) (*model.Dish, error) {
	return s.repo.GetByID(id)
}

// BrowseDishes 公开浏览（只含审核通过且在售）
func (s *dishService) BrowseDishes(category string, page, limit int) ([]model.Dish, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.ListApproved(category, offset, limit)
}

func (s *dishService) GetCookDishes(cookID string, page, limit int) ([]model.Dish, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.ListByCook(cookID, offset, limit)
}

// UpdateDish 更新菜品，内容变更后重新进入审核
func (s *dishService) UpdateDish(cookID, dishID string, input CreateDishInput) (*model.Dish, error) {
	dish, err := s.repo.GetByID(dishID)
	if err != nil {
		return nil, err
	}
	if dish.CookID != cookID {
		return nil, errors.New("dish does not belong to this cook")
	}
	if input.Price <= 0 {
		return nil, errors.New("price must be positive")
	}

	imagesJSON, _ := json.Marshal(input.ImageURLs)
	dish.Name = input.Name
	dish.NameEn = input.NameEn
	dish.Description = input.Description
	dish.Price = input.Price
	dish.Category = input.Category
	dish.ImageURLs = imagesJSON
	dish.Status = model.DishStatusPending // 修改后重新审核

	if err := s.repo.Update(dish); err != nil {
		return nil, err
	}
	return dish, nil
}

// SetAvailability 上架/下架
func (s *dishService) SetAvailability(cookID, dishID string, available bool) (*model.Dish, error) {
	dish, err := s.repo.GetByID(dishID)
	if err != nil {
		return nil, err
	}
	if dish.CookID != cookID {
		return nil, errors.New("dish does not belong to this cook")
	}

	dish.Available = available
	if err := s.repo.Update(dish); err != nil {
		return nil, err
	}
	return dish, nil
}

func (s *dishService) GetPendingDishes(page, limit int) ([]model.Dish, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.ListPending(offset, limit)
}

// Moderate 管理员审核
func (s *dishService) Moderate(dishID string, approve bool) (*model.Dish, error) {
	dish, err := s.repo.GetByID(dishID)
	if err != nil {
		return nil, err
	}

	if approve {
		dish.Status = model.DishStatusApproved
	} else {
		dish.Status = model.DishStatusRejected
	}

	if err := s.repo.Update(dish); err != nil {
		return nil, err
	}
	return dish, nil
}
