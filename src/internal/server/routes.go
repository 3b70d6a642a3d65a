package server

import (
	"qrlogin-svc/src/internal/dependency"
	"qrlogin-svc/src/internal/middleware"
	"time"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupPublicRoutes(router, deps)
	setupProtectedRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	rabbitMQ := deps.RabbitMQ
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(mongodb.Client.Ping(c.Request.Context(), nil) == nil),
					"redis":   getStatus(redisClient.Client.Ping(c.Request.Context()).Err() == nil),
				},
				"queue": gin.H{
					"rabbitmq": getStatus(!rabbitMQ.Conn.IsClosed()),
				},
				"services": gin.H{
					"qr_login": "operational",
					"token":    "operational",
					"code":     "operational",
				},
			},
		})
	})
}

// setupPublicRoutes registers the v1 surface: QR login lifecycle, the
// live-push websocket, one-time codes, and dev token minting. None of
// these require a credential; confirm/reject authenticate the acting
// app token in the request body instead.
func setupPublicRoutes(router *gin.Engine, deps *dependency.Manager) {
	qr := deps.QrHandler
	codeHandler := deps.CodeHandler
	userHandler := deps.UserHandler

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(200, "Pong")
		})

		qrGroup := v1.Group("/qr-login")
		{
			qrGroup.POST("/generate", qr.Generate)
			qrGroup.GET("/status/:sessionId", qr.Status)
			qrGroup.POST("/scan", qr.Scan)
			qrGroup.POST("/confirm", qr.Confirm)
			qrGroup.POST("/reject", qr.Reject)
		}

		v1.GET("/ws/qr/:sessionId", qr.WsStatus)

		codeGroup := v1.Group("/code")
		{
			codeGroup.POST("/email", codeHandler.SendEmailCode)
			codeGroup.POST("/phone", codeHandler.SendPhoneCode)
		}

		testGroup := v1.Group("/test")
		{
			testGroup.POST("/generate-token", userHandler.GenerateTestToken)
			testGroup.POST("/generate-token/default", userHandler.GenerateDefaultTestToken)
		}
	}
}

func setupProtectedRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Authority)

	v2 := router.Group("/api/v2")
	v2.Use(authMiddleware.RequireAuth())
	{
		v2.GET("/user/me", deps.UserHandler.GetMe)
	}
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
