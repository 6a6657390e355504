package logger

import (
	"log"

	"sofra_market/internal/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例
// 默认是空实现，InitLogger 之前（单元测试场景）也可以安全调用
var Log = zap.NewNop()

// InitLogger 初始化 zap 日志
// 开发环境使用 console 编码，生产环境使用 json 编码
func InitLogger() {
	var cfg zap.Config
	if config.GlobalConfig.App.Debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	Log = l
	zap.ReplaceGlobals(l)
}

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
