package dish

import (
	"sofra_market/internal/domain/dish/handler"
	"sofra_market/internal/domain/dish/repository"
	"sofra_market/internal/domain/dish/service"
	userRepo "sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/registry"
	"sofra_market/pkg/cache"

	"github.com/gin-gonic/gin"
)

// DishModule 菜品模块
type DishModule struct{}

func init() {
	registry.Register(&DishModule{})
}

func (m *DishModule) Name() string {
	return "dish"
}

func (m *DishModule) Priority() int {
	// 依赖用户模块
	return 10
}

func (m *DishModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	dRepo := repository.NewDishRepository(ctx.DB)
	uRepo := userRepo.NewUserRepository(ctx.DB)

	dService := service.NewDishService(dRepo, uRepo)
	// 浏览接口读多写少，套一层 Redis 缓存
	cached := service.NewCachedDishService(dService, cache.NewRedisCache(ctx.Redis))

	dHandler := handler.NewDishHandler(cached)

	// 2. 路由注册
	setupRoutes(ctx.Router, dHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.DishHandler) {
	// 公开浏览
	g := r.Group("/dishes")
	{
		g.GET("", h.Browse)
		g.GET("/:id", h.Get)
	}

	// 家厨管理自己的菜品
	cook := r.Group("/cook/dishes")
	cook.Use(middleware.AuthMiddleware())
	{
		cook.POST("", h.Create)
		cook.GET("", h.Mine)
		cook.PUT("/:id", h.Update)
		cook.PATCH("/:id/availability", h.SetAvailability)
	}

	// 管理员审核
	admin := r.Group("/admin/dishes")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/pending", h.Pending)
		admin.POST("/:id/moderate", h.Moderate)
	}
}
