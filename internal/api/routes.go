package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live_poll/internal/api/handlers"
	"live_poll/internal/middleware"
	"live_poll/internal/repository"
	"live_poll/internal/service"
)

// Dependencies 路由需要的元件
type Dependencies struct {
	Hub            *service.Hub
	Services       *service.Services
	Archive        repository.PollArchiveRepository // 可以是 nil
	AllowedOrigins []string
	Logger         *zap.Logger
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// 初始化 handlers
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.AllowedOrigins, deps.Logger.Named("ws"))
	sessionHandler := handlers.NewSessionHandler(deps.Hub, deps.Services, deps.Archive, deps.Logger.Named("http"))

	r.Use(middleware.Recovery(deps.Logger), middleware.RequestLogger(deps.Logger.Named("http")))

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
		})
	})

	// WebSocket 連接點
	r.GET("/ws", wsHandler.HandleWebSocket)

	// API 路由群組
	api := r.Group("/api")
	api.Use(middleware.CORS(deps.AllowedOrigins))
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// 預檢請求由 CORS 中間件直接回應
		api.OPTIONS("/*path", func(c *gin.Context) {})

		session := api.Group("/session")
		{
			session.GET("/poll", sessionHandler.GetActivePoll)
			session.GET("/history", sessionHandler.GetHistory)
			session.GET("/roster", sessionHandler.GetRoster)
			session.GET("/stats", sessionHandler.GetStats)
		}

		api.GET("/archive/polls", sessionHandler.ListArchivedPolls)
	}
}
