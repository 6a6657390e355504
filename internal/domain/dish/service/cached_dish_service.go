package service

import (
	"context"
	"fmt"
	"time"

	"sofra_market/internal/domain/dish/model"
	"sofra_market/pkg/cache"
)

// CachedDishService 带缓存的菜品服务
// 浏览列表和详情是读多写少的热点，写操作时失效相关缓存
type CachedDishService struct {
	inner DishService
	cache cache.CacheService
}

// NewCachedDishService 创建带缓存的菜品服务
func NewCachedDishService(inner DishService, cache cache.CacheService) DishService {
	return &CachedDishService{inner: inner, cache: cache}
}

// 缓存键常量
const (
	DishCacheKeyPrefix   = "dish:"
	BrowseCacheKeyPrefix = "dish_browse:"
	DishCacheTTL         = time.Hour
	BrowseCacheTTL       = time.Minute * 10
)

func (s *CachedDishService) dishKey(id string) string {
	return DishCacheKeyPrefix + id
}

func (s *CachedDishService) browseKey(category string, page, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d", BrowseCacheKeyPrefix, category, page, limit)
}

// invalidate 清除菜品相关缓存
func (s *CachedDishService) invalidate(ctx context.Context, dishID string) {
	_ = s.cache.Delete(ctx, s.dishKey(dishID))
	_ = s.cache.InvalidatePattern(ctx, BrowseCacheKeyPrefix+"*")
}

func (s *CachedDishService) CreateDish(cookID string, input CreateDishInput) (*model.Dish, error) {
	dish, err := s.inner.CreateDish(cookID, input)
	if err == nil {
		_ = s.cache.InvalidatePattern(context.Background(), BrowseCacheKeyPrefix+"*")
	}
	return dish, err
}

// GetDish 获取菜品详情（带缓存）
func (s *CachedDishService) GetDish(id string) (*model.Dish, error) {
	ctx := context.Background()

	var cached model.Dish
	if err := s.cache.Get(ctx, s.dishKey(id), &cached); err == nil {
		return &cached, nil
	}

	dish, err := s.inner.GetDish(id)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, s.dishKey(id), dish, DishCacheTTL)
	return dish, nil
}

// BrowseDishes 公开浏览列表（带缓存）
func (s *CachedDishService) BrowseDishes(category string, page, limit int) ([]model.Dish, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	ctx := context.Background()
	key := s.browseKey(category, page, limit)

	var cached struct {
		Dishes []model.Dish `json:"dishes"`
		Total  int64        `json:"total"`
	}
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached.Dishes, cached.Total, nil
	}

	dishes, total, err := s.inner.BrowseDishes(category, page, limit)
	if err != nil {
		return nil, 0, err
	}

	cached.Dishes = dishes
	cached.Total = total
	_ = s.cache.Set(ctx, key, cached, BrowseCacheTTL)

	return dishes, total, nil
}

// GetCookDishes 家厨自己的列表不走缓存（需要实时看到审核状态）
func (s *CachedDishService) GetCookDishes(cookID string, page, limit int) ([]model.Dish, int64, error) {
	return s.inner.GetCookDishes(cookID, page, limit)
}

func (s *CachedDishService) UpdateDish(cookID, dishID string, input CreateDishInput) (*model.Dish, error) {
	dish, err := s.inner.UpdateDish(cookID, dishID, input)
	if err == nil {
		s.invalidate(context.Background(), dishID)
	}
	return dish, err
}

func (s *CachedDishService) SetAvailability(cookID, dishID string, available bool) (*model.Dish, error) {
	dish, err := s.inner.SetAvailability(cookID, dishID, available)
	if err == nil {
		s.invalidate(context.Background(), dishID)
	}
	return dish, err
}

func (s *CachedDishService) GetPendingDishes(page, limit int) ([]model.Dish, int64, error) {
	return s.inner.GetPendingDishes(page, limit)
}

func (s *CachedDishService) Moderate(dishID string, approve bool) (*model.Dish, error) {
	dish, err := s.inner.Moderate(dishID, approve)
	if err == nil {
		s.invalidate(context.Background(), dishID)
	}
	return dish, err
}
