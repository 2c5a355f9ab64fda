package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safewatch/config"
	"safewatch/database"
	"safewatch/repositories"
	"safewatch/routes"
	"safewatch/services"
	"safewatch/utils"
	"safewatch/websocket"
	"safewatch/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	redis := config.InitRedis(cfg)
	defer redis.Close()

	ctx := context.Background()
	validator := utils.NewValidationService()
	clock := utils.SystemClock()

	// Storage
	alertRepo := repositories.NewAlertTaskRepository(db)
	zoneRepo := repositories.NewZoneRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	zoneCache := repositories.NewZoneCache(redis)

	// Delivery
	pushService, err := services.NewPushService(
		ctx,
		cfg.FirebaseCredentials,
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioPhoneNumber,
		profileRepo,
	)
	if err != nil {
		logrus.Fatal("Failed to initialize push service: ", err)
	}

	queue := services.NewDispatchQueue(pushService, alertRepo, clock, cfg.RetryPolicy())
	if restored, err := queue.Restore(ctx); err != nil {
		logrus.Warnf("Could not restore alert queue: %v", err)
	} else if restored > 0 {
		logrus.Infof("📬 Restored %d queued alerts", restored)
	}

	zoneService := services.NewZoneService(zoneRepo, zoneCache, validator, clock, cfg.ZoneCacheTTL)
	if _, err := zoneService.Refresh(ctx); err != nil {
		logrus.Warnf("Initial zone load failed, %d zones available: %v", len(zoneService.Snapshot()), err)
	}

	safetyService := services.NewSafetyService(
		zoneService,
		services.NewZoneClassifier(),
		services.NewSafetyScorer(cfg.ScoringPolicy()),
		queue,
		services.NewLocationService(locationRepo, validator),
		profileRepo,
		clock,
		cfg.PanicConfig(),
	)

	hub := websocket.NewHub(safetyService)
	go hub.Run()
	safetyService.SetBroadcaster(hub)

	dispatchWorker := workers.StartDispatchWorker(queue, cfg.DispatchPollInterval)
	zoneWorker := workers.StartZoneWorker(zoneService, cfg.ZoneRefreshInterval)
	sessionWorker := workers.StartSessionWorker(safetyService, cfg.SessionSweepInterval, cfg.SessionIdleTimeout)

	safetyService.OnEmergencyQueued(dispatchWorker.Kick)

	router := routes.SetupRoutes(routes.Dependencies{
		Config:       cfg,
		Redis:        redis,
		Safety:       safetyService,
		Zones:        zoneService,
		AlertStore:   alertRepo,
		Hub:          hub,
		Validator:    validator,
		KickDispatch: dispatchWorker.Kick,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("🚀 Safewatch server starting on port ", cfg.Port)
		logrus.Info("📱 WebSocket endpoint: /ws")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	sessionWorker.Stop()
	zoneWorker.Stop()
	dispatchWorker.Stop()
	hub.Shutdown()

	logrus.Info("✅ Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
		return
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
