package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDKey 上下文中追踪ID的键名
const TraceIDKey = "traceID"

// TraceMiddleware 添加请求追踪ID
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先取 X-Trace-ID，兼容网关透传的 X-Request-ID，都没有则生成新的
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = c.GetHeader("X-Request-ID")
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// GetTraceID 从上下文读取追踪ID，不存在时返回空串
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
