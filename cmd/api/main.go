package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"spinwin-backend/internal/config"
	"spinwin-backend/internal/handlers"
	"spinwin-backend/internal/logging"
	"spinwin-backend/internal/middleware"
	"spinwin-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logging.Logger.Sync()

	events := services.NewEmitter()

	store, err := services.NewRedisStore(cfg, events)
	if err != nil {
		logging.Sugar.Fatalw("failed to connect to redis", "error", err)
	}
	defer store.Close()

	jwtService := services.NewJWTService(cfg)
	identity := services.NewGoogleProvider(cfg)
	ledger := services.NewLedgerService(store)
	sessions := services.NewSessionManager(ledger)

	wsHandler := handlers.NewWebSocketHandler(sessions, events)
	authHandler := handlers.NewAuthHandler(identity, store, jwtService, ledger, sessions)
	userHandler := handlers.NewUserHandler(sessions)
	rewardsHandler := handlers.NewRewardsHandler(sessions, ledger, wsHandler)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
	}))

	router.GET("/auth/google", authHandler.Login)
	router.GET("/auth/google/callback", authHandler.Callback)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(store))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)
		protected.PUT("/profile", userHandler.UpdateProfile)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		protected.POST("/spin", rewardsHandler.Spin)
		protected.GET("/spins", rewardsHandler.GetSpinHistory)
		protected.POST("/referral", rewardsHandler.ApplyReferral)
		protected.GET("/tiers", rewardsHandler.GetTiers)
		protected.POST("/withdrawals", rewardsHandler.RequestWithdrawal)
		protected.GET("/withdrawals", rewardsHandler.GetWithdrawalHistory)
	}

	logging.Sugar.Infow("server starting", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logging.Sugar.Fatalw("server exited", "error", err)
	}
}
