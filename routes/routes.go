package routes

import (
	"safewatch/config"
	"safewatch/controllers"
	"safewatch/middleware"
	"safewatch/services"
	"safewatch/utils"
	"safewatch/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Dependencies are the long-lived components the HTTP layer talks to.
type Dependencies struct {
	Config    *config.Config
	Redis     *redis.Client
	Safety    *services.SafetyService
	Zones     *services.ZoneService
	Hub       *websocket.Hub
	Validator *utils.ValidationService
	// AlertStore backs the durable failure count on /health.
	AlertStore controllers.AlertStatusCounter
	// KickDispatch starts a drain right away.
	KickDispatch func()
}

type Controllers struct {
	Safety *controllers.SafetyController
	Panic  *controllers.PanicController
	Queue  *controllers.QueueController
	Health *controllers.HealthController
}

func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()

	ctrls := Controllers{
		Safety: controllers.NewSafetyController(deps.Safety, deps.Validator),
		Panic:  controllers.NewPanicController(deps.Safety),
		Queue:  controllers.NewQueueController(deps.Safety, deps.KickDispatch),
		Health: controllers.NewHealthController(deps.Redis, deps.Zones, deps.AlertStore),
	}

	router.Use(middleware.Recovery(deps.Config.Environment))
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(deps.Config.Environment))

	router.GET("/health", ctrls.Health.HealthCheck)

	auth := middleware.NewAuthMiddleware(utils.NewJWTService(deps.Config.JWTSecret))

	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())
	{
		safety := api.Group("/safety")
		{
			safety.POST("/classify", ctrls.Safety.Classify)
			safety.POST("/score", ctrls.Safety.Score)
			safety.GET("/geofence/history", ctrls.Safety.GeofenceHistory)
		}

		api.POST("/location", middleware.LocationRateLimit(deps.Redis), ctrls.Safety.UpdateLocation)

		panicGroup := api.Group("/panic")
		{
			panicGroup.GET("", ctrls.Panic.GetSession)
			panicGroup.POST("/trigger", ctrls.Panic.Trigger)
			panicGroup.POST("/deactivate", ctrls.Panic.RequestDeactivate)
			panicGroup.POST("/confirm", ctrls.Panic.ConfirmDeactivate)
		}

		queue := api.Group("/queue")
		{
			queue.GET("", ctrls.Queue.GetStatus)
			queue.POST("/:id/retry", ctrls.Queue.Retry)
			queue.DELETE("/:id", ctrls.Queue.Discard)
		}
	}

	router.GET("/ws", auth.RequireAuth(), deps.Hub.ServeWS)

	return router
}
