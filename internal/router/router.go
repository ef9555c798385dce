package router

import (
	"log/slog"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/blocking"
	"hangout/internal/handler"
	"hangout/internal/middleware"
	"hangout/internal/ratelimit"
	"hangout/internal/repository"
	"hangout/internal/service"
	"hangout/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and routes. push may be nil. The
// returned func releases background workers and should run on shutdown.
func Setup(cfg *config.Config, db *gorm.DB, layer ws.Layer, push service.Pusher, log *slog.Logger) (*gin.Engine, func()) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	pool := blocking.NewPool(cfg.Database.Workers)
	verifier := auth.NewJWTVerifier(&cfg.JWT, userRepo)
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, layer, push, log)
	chatSvc := service.NewChatService(chatRepo, planRepo, notifSvc, pool, cfg.Chat.Location(), log)
	hooks := service.NewPlanHooks(planRepo, userRepo, chatSvc, notifSvc, log)

	// Handlers
	chatGateway := handler.NewChatGateway(chatSvc, verifier, pool, layer, &cfg.Chat, log)
	notificationGateway := handler.NewNotificationGateway(verifier, pool, layer, &cfg.Chat, log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	meHandler := handler.NewMeHandler(notifSvc, log)
	planEventsHandler := handler.NewPlanEventsHandler(hooks, log)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter), authMw)
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/", notificationHandler.List)
			notifications.GET("/summary", notificationHandler.Summary)
			notifications.POST("/mark-all-read", notificationHandler.MarkAllRead)
			notifications.POST("/clear", notificationHandler.Clear)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}
		api.GET("/chat/threads", chatHandler.Threads)
		api.POST("/me/fcm-token", meHandler.RegisterFCMToken)
	}

	internal := r.Group("/internal/v1")
	internal.Use(middleware.InternalToken(cfg.Internal.PlanEventsSecret))
	{
		internal.POST("/plan-events", planEventsHandler.Report)
	}

	r.GET("/ws/plan/:plan_id", chatGateway.Serve)
	r.GET("/ws/plan/:plan_id/", chatGateway.Serve)
	r.GET("/ws/notifications", notificationGateway.Serve)
	r.GET("/ws/notifications/", notificationGateway.Serve)

	return r, func() {
		limiter.Stop()
		chatGateway.Close()
	}
}
