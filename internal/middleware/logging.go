// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"swiftshare-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// RequestLogger 是一个 Gin 中间件，记录每个请求的访问日志。
// 请求体可能包含收件人邮箱等隐私字段，因此只记录元信息不记录报文。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"responseSize", c.Writer.Size(),
		)
	}
}
