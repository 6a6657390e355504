package user

import (
	subscriptionRepo "sofra_market/internal/domain/subscription/repository"
	subscriptionService "sofra_market/internal/domain/subscription/service"
	"sofra_market/internal/domain/user/handler"
	"sofra_market/internal/domain/user/repository"
	"sofra_market/internal/domain/user/service"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/otp"
	"sofra_market/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，因为其他模块可能依赖它
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	otpService := otp.NewOTPService(ctx.Redis)
	// 服务商开通时由订阅模块建立试用期记录
	subRepo := subscriptionRepo.NewSubscriptionRepository(ctx.DB)
	trials := subscriptionService.NewSubscriptionService(subRepo, userRepo, ctx.Payments)
	userService := service.NewUserService(userRepo, otpService, trials)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	// 公开路由
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.LoginOrRegister) // 登录/注册
		authGroup.POST("/otp", h.SendOTP)           // 发送验证码
	}

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.GET("/:id", h.GetUser)
		userGroup.PUT("/me", h.UpdateProfile)
		userGroup.POST("/provider", h.BecomeProvider)
	}

	// 管理员路由
	adminGroup := r.Group("/admin/users")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.GET("/", h.GetUsers)
		adminGroup.POST("/:id/ban", h.BanUser)
		adminGroup.DELETE("/:id", h.DeleteUser)
	}
}
