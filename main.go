package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-session-service/config"
	"game-session-service/handlers"
	"game-session-service/middleware"
	"game-session-service/models"
	"game-session-service/services"
	"game-session-service/utils"
	"game-session-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	app := fiber.New(handlers.NewAppConfig(cfg.ProxyHeader, cfg.TrustedProxies))

	// 🔐 GLOBAL: every route except /health requires the gateway token
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	// With AUTO_MIGRATE=false the schema is provisioned externally; until it is, sessions
	// are served from the in-memory fallback store.
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
	}

	signer, err := services.NewSigner([]byte(cfg.SessionHMACSecret))
	if err != nil {
		log.Fatal("failed to initialize signer:", err)
	}

	fallbackStore := services.NewMemorySessionStore()
	anomalyStore := services.NewGormAnomalyStore(db)
	progressionService := services.NewProgressionService(db)

	var ledger services.Ledger
	if cfg.LedgerURL != "" {
		ledger = services.NewLedgerClient(cfg.LedgerURL, cfg.LedgerToken)
	} else {
		log.Println("⚠️  LEDGER_SERVICE_URL not set, rewards will only accrue XP")
	}
	crediter := services.NewRewardCrediter(db, ledger, progressionService, fallbackStore)

	manager := services.NewSessionManager(services.SessionManagerDeps{
		Caps:     services.NewCapsResolver(db, cfg.DefaultCaps),
		Signer:   signer,
		Durable:  services.NewGormSessionStore(db),
		Fallback: fallbackStore,
		Events:   anomalyStore,
		Detector: services.NewAnomalyDetector(anomalyStore),
		Crediter: crediter,
	})

	var startLimiter, signLimiter services.RateLimiter
	var memoryLimiters []*services.MemoryRateLimiter
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisURL,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 5,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️  Redis ping failed, limiter will fail open until it recovers: %v", err)
		}
		cancel()

		startLimiter = services.NewRedisRateLimiter(rdb, "start", cfg.StartRateLimit, cfg.StartRateWindow)
		signLimiter = services.NewRedisRateLimiter(rdb, "sign", cfg.SignRateLimit, cfg.SignRateWindow)
	} else {
		log.Println("⚠️  REDIS_URL not set, rate limits are per process")
		start := services.NewMemoryRateLimiter(cfg.StartRateLimit, cfg.StartRateWindow)
		sign := services.NewMemoryRateLimiter(cfg.SignRateLimit, cfg.SignRateWindow)
		startLimiter, signLimiter = start, sign
		memoryLimiters = append(memoryLimiters, start, sign)
	}

	sched, err := services.StartMaintenanceScheduler(services.MaintenanceJobs{
		Fallback:    fallbackStore,
		FallbackTTL: cfg.FallbackSessionTTL,
		Limiters:    memoryLimiters,
		Crediter:    crediter,
		Events:      anomalyStore,
	})
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.R2Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.CloudflareAccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2AnomalyBucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		go workers.NewAnomalyExportWorker(db, r2, cfg.AnomalyExportInterval).Start(ctx)
	} else {
		log.Println("⚠️  R2 anomaly export disabled (credentials or bucket missing)")
	}

	handlers.SetupHealthRoutes(app, db)
	handlers.SetupSessionRoutes(app, manager, startLimiter, signLimiter)
	handlers.SetupProgressionRoutes(app, progressionService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	manager.Drain()
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
