package routes

import (
	"github.com/godyjooce/1win-predictor.01-international4/internal/api/handlers"
	"github.com/godyjooce/1win-predictor.01-international4/internal/api/middleware"
	"github.com/godyjooce/1win-predictor.01-international4/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(
	cfg *config.Config,
	logger *zap.Logger,
	chatHandler *handlers.ChatHandler,
	modelsHandler *handlers.ModelsHandler,
	registrationHandler *handlers.RegistrationHandler,
	historyHandler *handlers.HistoryHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {

	// Настройка Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))

	// Health check
	r.GET("/health", healthHandler.Check)

	// API routes
	api := r.Group("/api")
	{
		// Стрим сам ставит дедлайн, общий timeout-middleware сюда не вешаем
		api.POST("/chat", chatHandler.SendMessage)

		api.GET("/models", modelsHandler.GetAvailableModels)

		api.GET("/registration/status", registrationHandler.GetStatus)

		history := api.Group("/history")
		history.Use(middleware.TimeoutMiddleware(cfg.Server.ReadTimeout))
		{
			history.GET("", historyHandler.GetChats)
			history.DELETE("", historyHandler.ClearChats)
			history.GET("/:id", historyHandler.GetChat)
			history.GET("/shared/:id", historyHandler.GetSharedChat)
			history.DELETE("/:id", historyHandler.RemoveChat)
			history.POST("/:id/share", historyHandler.ShareChat)
		}
	}

	return r
}
