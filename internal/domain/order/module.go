package order

import (
	dishRepo "sofra_market/internal/domain/dish/repository"
	"sofra_market/internal/domain/order/handler"
	"sofra_market/internal/domain/order/repository"
	"sofra_market/internal/domain/order/service"
	userRepo "sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/registry"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	// 依赖用户和菜品模块
	return 20
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	oRepo := repository.NewOrderRepository(ctx.DB)
	dRepo := dishRepo.NewDishRepository(ctx.DB)
	uRepo := userRepo.NewUserRepository(ctx.DB)

	oService := service.NewOrderService(oRepo, dRepo, uRepo, ctx.Payments, ctx.Workers)
	oHandler := handler.NewOrderHandler(oService)

	// 2. 注册路由
	r := ctx.Router

	// 支付回跳不带登录态（来自托管支付页的重定向）
	r.GET("/orders/payment/callback", oHandler.PaymentCallback)

	g := r.Group("/orders")
	g.Use(middleware.AuthMiddleware())
	{
		g.POST("", oHandler.Create)
		g.POST("/confirm", oHandler.Confirm)
		g.GET("", oHandler.Mine)
		g.GET("/:id", oHandler.Get)
		g.PATCH("/:id/status", oHandler.UpdateStatus)
		g.POST("/:id/cancel", oHandler.Cancel)
	}

	return nil
}
