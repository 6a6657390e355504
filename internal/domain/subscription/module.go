package subscription

import (
	"sofra_market/internal/domain/subscription/handler"
	"sofra_market/internal/domain/subscription/repository"
	"sofra_market/internal/domain/subscription/service"
	userRepo "sofra_market/internal/domain/user/repository"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/registry"
)

// SubscriptionModule 订阅模块
type SubscriptionModule struct{}

func init() {
	registry.Register(&SubscriptionModule{})
}

func (m *SubscriptionModule) Name() string {
	return "subscription"
}

func (m *SubscriptionModule) Priority() int {
	return 30
}

func (m *SubscriptionModule) Init(ctx *registry.ModuleContext) error {
	sRepo := repository.NewSubscriptionRepository(ctx.DB)
	uRepo := userRepo.NewUserRepository(ctx.DB)

	sService := service.NewSubscriptionService(sRepo, uRepo, ctx.Payments)
	sHandler := handler.NewSubscriptionHandler(sService)

	g := ctx.Router.Group("/subscriptions")
	g.Use(middleware.AuthMiddleware())
	{
		g.POST("/check", sHandler.Check)
		g.POST("/checkout", sHandler.Checkout)
	}

	return nil
}
