package review

import (
	orderRepo "sofra_market/internal/domain/order/repository"
	"sofra_market/internal/domain/review/handler"
	"sofra_market/internal/domain/review/repository"
	"sofra_market/internal/domain/review/service"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/registry"
)

// ReviewModule 评价模块
type ReviewModule struct{}

func init() {
	registry.Register(&ReviewModule{})
}

func (m *ReviewModule) Name() string {
	return "review"
}

func (m *ReviewModule) Priority() int {
	// 依赖订单模块
	return 40
}

func (m *ReviewModule) Init(ctx *registry.ModuleContext) error {
	rRepo := repository.NewReviewRepository(ctx.DB)
	oRepo := orderRepo.NewOrderRepository(ctx.DB)

	rService := service.NewReviewService(rRepo, oRepo)
	rHandler := handler.NewReviewHandler(rService)

	r := ctx.Router

	// 公开读取
	r.GET("/providers/:id/reviews", rHandler.ByProvider)
	r.GET("/providers/:id/stats", rHandler.ProviderStats)
	r.GET("/dishes/:id/reviews", rHandler.ByDish)

	// 评价需要登录
	r.POST("/reviews", middleware.AuthMiddleware(), rHandler.Create)

	return nil
}
