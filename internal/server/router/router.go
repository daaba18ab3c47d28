package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(webhook *handlers.WebhookHandler, proxy *handlers.ProxyHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	ack := acknowledgeOnPanic(logger)

	r.GET("/webhook", ack, webhook.Verify)
	r.POST("/webhook", ack, webhook.Receive)
	r.GET("/wa-status", ack, webhook.Verify)
	r.POST("/wa-status", ack, webhook.ReceiveStatus)
	r.POST("/send-message", webhook.SendMessage)
	if proxy != nil {
		r.Any("/waba-proxy/*path", proxy.Forward)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	logger.Info("router initialized")
	return r
}

// acknowledgeOnPanic answers 200 when a webhook handler panics so Meta does not redeliver.
func acknowledgeOnPanic(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("webhook handler panicked",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				c.AbortWithStatus(http.StatusOK)
			}
		}()
		c.Next()
	}
}

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware keeps the caller's request id or mints one, and echoes it back.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
