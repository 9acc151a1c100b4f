package handler

import (
	"github.com/gin-gonic/gin"
	"quick_chat/internal/config"
	"quick_chat/internal/middleware"
	"quick_chat/pkg/logger"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", handlers.Health.Metrics())

	router.GET("/ws",
		middleware.HandshakeLimit(cfg.WebSocket.HandshakeRPS, cfg.WebSocket.HandshakeBurst),
		authMiddleware.RequireAuth(),
		handlers.WebSocket.Handle,
	)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		{
			public.POST("/register", rateLimitMiddleware.Limit(), handlers.Auth.Register)
			public.POST("/login", rateLimitMiddleware.Limit(), handlers.Auth.Login)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			users := protected.Group("/users")
			{
				users.GET("", handlers.User.List)
				users.GET("/me", handlers.User.GetMe)
				users.PUT("/me", handlers.User.UpdateMe)
			}

			conversations := protected.Group("/conversations/:userId")
			{
				conversations.GET("/messages", handlers.Conversation.GetMessages)
				conversations.PUT("/seen", handlers.Conversation.MarkSeen)
				conversations.DELETE("", handlers.Conversation.DeleteConversation)
			}

			messages := protected.Group("/messages")
			{
				messages.POST("", handlers.Conversation.SendMessage)
				messages.GET("/unread-count", handlers.Conversation.UnreadCount)
				messages.GET("/:messageId", handlers.Conversation.GetMessage)
				messages.DELETE("/:messageId", handlers.Conversation.DeleteMessage)
			}

			protected.GET("/presence/online", handlers.Conversation.OnlineUsers)
		}
	}

	return router
}
