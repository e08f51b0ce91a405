package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/database"
	callsHandler "github.com/FathanAkram-app/VCOMM-web-sub005/internal/handler/http/calls"
	webrtcHandler "github.com/FathanAkram-app/VCOMM-web-sub005/internal/handler/http/webrtc"
	wsHandler "github.com/FathanAkram-app/VCOMM-web-sub005/internal/handler/ws"
	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/middleware"
	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/repository/postgres"
	redisRepo "github.com/FathanAkram-app/VCOMM-web-sub005/internal/repository/redis"
	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/signaling"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/env"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/jwt"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/metrics"
)

func main() {
	// 1. Load environment and logging
	_ = godotenv.Load()
	logger.InitDefault()
	defer logger.Sync()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env.GetString("ENV", "development"),
		}); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// 2. Setup JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute)

	// 3. Connect to PostgreSQL
	pgDB, err := database.NewPostgresDBFromEnv(context.Background())
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgDB.Close()

	log.Println("✅ Connected to PostgreSQL")

	// 4. Connect to Redis
	redisDB, err := database.NewRedisDBFromEnv()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisDB.Close()

	log.Println("✅ Connected to Redis")

	// Start background Redis health check
	redisDB.StartHealthCheck(context.Background(), 10*time.Second)
	log.Println("✅ Redis health check started (10s interval)")

	// 5. Initialize Repositories
	callRepo := postgres.NewCallRepository(pgDB.Pool)
	userRepo := postgres.NewUserRepository(pgDB.Pool)
	roomRepo := postgres.NewRoomRepository(pgDB.Pool)
	presenceRepo := redisRepo.NewPresenceRepository(redisDB)
	signalBridge := redisRepo.NewSignalBridge(redisDB)

	// 6. Initialize Metrics
	appMetrics := metrics.NewMetrics("signaling-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 7. Initialize Signaling
	registry := signaling.NewRegistry()
	router := signaling.NewRouter(registry, logger.Log, appMetrics)
	relay := signaling.NewRelay(callRepo, userRepo, roomRepo, router, logger.Log, appMetrics, signaling.Config{
		RingTimeout: env.GetDuration("CALL_RING_TIMEOUT", constants.DefaultRingTimeout),
	})
	defer relay.Shutdown()

	// 8. Initialize Handlers
	hub := wsHandler.NewHub(registry, router, relay, jwtManager, presenceRepo, signalBridge, appMetrics)
	callsHdlr := callsHandler.NewHandler(callRepo)
	webrtcHdlr := webrtcHandler.NewHandler(router, signalBridge)

	// 9. Setup Gin Router
	ginRouter := gin.New() // Don't use Default() to have full control

	// Trusted proxies are IPs or CIDR ranges, not URLs
	trustedProxies := strings.Split(env.GetString("TRUSTED_PROXIES", "127.0.0.1,::1"), ",")
	for i := range trustedProxies {
		trustedProxies[i] = strings.TrimSpace(trustedProxies[i])
	}
	if err := ginRouter.SetTrustedProxies(trustedProxies); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	// Apply global middleware
	ginRouter.Use(middleware.Recovery())
	ginRouter.Use(middleware.RequestLogger())
	ginRouter.Use(middleware.CORSMiddleware())
	ginRouter.Use(prometheusMiddleware.Handler())

	// Health check
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "signaling-service",
			"time":    time.Now().UTC(),
		})
	})

	// Metrics endpoint (for Prometheus scraping)
	ginRouter.GET("/metrics", middleware.MetricsHandler(appMetrics))

	// Revocation checker
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)

	// Call routes (all require authentication)
	v1 := ginRouter.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	{
		v1.GET("/calls", callsHdlr.ListCalls)
		v1.GET("/calls/:id", callsHdlr.GetCall)
	}

	// WebSocket endpoint (real-time signaling). Authentication happens in the
	// handshake itself: browser WebSocket clients cannot set an Authorization
	// header, so the token arrives as a query parameter instead.
	ginRouter.GET("/v1/calls/ws", hub.ServeWS)

	// HTTP fallback relay for clients without a socket
	webrtc := ginRouter.Group("/webrtc")
	{
		webrtc.POST("/offer", webrtcHdlr.Offer)
		webrtc.POST("/answer", webrtcHdlr.Answer)
		webrtc.POST("/ice-candidate", webrtcHdlr.ICECandidate)
	}

	// 10. Start server
	port := env.GetString("PORT", "8084")
	addr := fmt.Sprintf(":%s", port)
	server := &http.Server{
		Addr:    addr,
		Handler: ginRouter,
	}

	go func() {
		log.Printf("🚀 Signaling Service starting on port %s\n", port)
		log.Println("📡 WebSocket endpoint: /v1/calls/ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
