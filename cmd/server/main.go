package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "sofra_market/internal/domain/common"
	_ "sofra_market/internal/domain/dish"
	_ "sofra_market/internal/domain/order"
	_ "sofra_market/internal/domain/review"
	_ "sofra_market/internal/domain/subscription"
	_ "sofra_market/internal/domain/user"

	"sofra_market/internal/pkg/config"
	"sofra_market/internal/pkg/middleware"
	"sofra_market/internal/pkg/payments"
	"sofra_market/internal/pkg/push"
	"sofra_market/internal/pkg/registry"
	"sofra_market/internal/pkg/uploader"
	"sofra_market/internal/pkg/worker"
	"sofra_market/pkg/database"
	"sofra_market/pkg/logger"
	"sofra_market/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Sofra Market API
// @version 1.0
// @description 家庭美食与家政服务交易平台接口文档
// @BasePath /
func main() {
	// 1. 配置和日志
	config.LoadConfig()
	logger.InitLogger()
	defer logger.Sync()

	if !config.GlobalConfig.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 基础设施
	db := database.InitDatabase()
	rdb := database.InitRedis()

	stripeClient, err := payments.NewStripeClient()
	if err != nil {
		logger.Log.Fatal("init stripe client", zap.Error(err))
	}

	// OSS 和推送未配置时降级为日志输出，不阻塞启动
	if err := uploader.InitUploader(); err != nil {
		logger.Log.Warn("uploader disabled", zap.Error(err))
	}
	if err := push.InitPushService(); err != nil {
		logger.Log.Warn("push service disabled", zap.Error(err))
	}

	// 3. 通知工作池
	pool := worker.NewWorkerPool(push.GlobalPushService, 4, 1024)
	pool.Start()

	// 4. HTTP 引擎和中间件
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// 5. 初始化业务模块
	moduleCtx := &registry.ModuleContext{
		DB:       db,
		Redis:    rdb,
		Router:   r,
		Payments: stripeClient,
		Workers:  pool,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("init modules", zap.Error(err))
	}

	// 6. 周期性上报数据库连接池指标
	go reportDBStats(db)

	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	// 7. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
}

// reportDBStats 每 15 秒采集一次连接池状态
func reportDBStats(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Warn("db stats unavailable", zap.Error(err))
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		metrics.GetGlobalCollector().RecordDBStats(sqlDB.Stats())
	}
}
