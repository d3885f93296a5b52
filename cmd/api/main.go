package main

import (
	"campus-marketplace-backend/config"
	_ "campus-marketplace-backend/docs" // Important for Swagger
	"campus-marketplace-backend/internal/delivery/http/middleware"
	v1 "campus-marketplace-backend/internal/delivery/http/v1"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/repository/postgres"
	"campus-marketplace-backend/internal/repository/supabase"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/internal/usecase"
	"campus-marketplace-backend/pkg/auth"
	"campus-marketplace-backend/pkg/database"
	"campus-marketplace-backend/pkg/logger"
	"campus-marketplace-backend/pkg/redis"
	"campus-marketplace-backend/pkg/security"
	"campus-marketplace-backend/pkg/security/antivirus"
	"campus-marketplace-backend/pkg/storage"
	"campus-marketplace-backend/pkg/validation"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// @title           Campus Marketplace API
// @version         1.0
// @description     Sessions, carts, listings and orders for the campus marketplace.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting campus marketplace backend", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Redis (optional)
	redisClient, err := redis.NewClient(ctx, redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword})
	if err != nil {
		if !errors.Is(err, redis.ErrNotConfigured) {
			logger.Log.Warn("Redis unavailable, using in-memory fallback", "error", err)
		}
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 5. Security audit log
	audit := security.NewSecurityLogger("campus-marketplace", cfg.Environment)
	if cfg.SecurityLogToDB {
		audit.SetPersistFunc(security.NewEventRepository(dbPool).PersistEvent)
	}
	defer audit.Close()

	// 6. Request validation
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterValidators(v)
	}

	// 7. Setup Repositories
	profileRepo := postgres.NewProfileRepository(dbPool)
	productRepo := postgres.NewProductRepository(dbPool)
	orderRepo := postgres.NewOrderRepository(dbPool)
	adminRepo := postgres.NewAdminRepository(dbPool)
	auditRepo := postgres.NewAuditRepository(dbPool)
	identityProvider := supabase.NewIdentityProvider(cfg.SupabaseUrl, cfg.SupabaseKey, nil)

	// 8. Sessions
	var kv session.KV
	if redisClient != nil {
		kv = session.NewRedisKV(redisClient, cfg.SessionTTL)
	} else {
		kv = session.NewMemoryKV(cfg.SessionTTL)
	}
	sessions := session.NewManager(kv, profileRepo, cfg.SessionIdleTimeout)
	sessions.Start(time.Minute)
	defer sessions.Stop()

	// 9. Product images (optional)
	var images domain.ImageStore
	if cfg.ProductImageBucket != "" {
		s3Cfg := storage.S3Config{
			Provider:        storage.Provider(cfg.S3Provider),
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.ProductImageBucket,
			Endpoint:        cfg.S3Endpoint,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Cfg)
		if err != nil {
			logger.Log.Warn("Product image storage disabled", "error", err)
		} else {
			images = storage.NewProductImages(s3Client, s3Cfg, cfg.ProductImageMaxPx)
		}
	}

	// 10. Setup UseCases
	calc := session.NewCalculator(cfg.DeliveryFee)
	tracker := security.NewLoginTracker(redisClient, security.LoginTrackerConfig{
		MaxAttempts:   cfg.FailedLoginMaxAttempts,
		AttemptWindow: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		BlockDuration: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		UseIPTracking: true,
	}, audit)
	pingers := []usecase.Pinger{database.Pinger{Pool: dbPool}}
	if redisClient != nil {
		pingers = append(pingers, redis.Pinger{Client: redisClient})
	}
	var scanner antivirus.Scanner = antivirus.Nop{}
	if cfg.ClamAVAddr != "" {
		clam := antivirus.NewClamAV(cfg.ClamAVAddr, cfg.ClamAVTimeout)
		scanner = clam
		pingers = append(pingers, clam)
	}
	healthUC := usecase.NewHealthUsecase(pingers...)

	authUC := usecase.NewAuthUsecase(identityProvider, profileRepo, usecase.NewLoginGuard(tracker), audit)
	onboardingUC := usecase.NewOnboardingUsecase(profileRepo, audit)
	cartUC := usecase.NewCartUsecase(productRepo, calc)
	productUC := usecase.NewProductUsecase(productRepo, images)
	orderUC := usecase.NewOrderUsecase(orderRepo, productRepo, calc)
	adminUC := usecase.NewAdminUsecase(adminRepo, profileRepo, healthUC, audit)
	auditUC := usecase.NewAuditUsecase(auditRepo)

	// 11. Token verification: HS256 with the project secret, RS256 via JWKS
	keys := auth.NewKeySet(cfg.SupabaseUrl + "/auth/v1/.well-known/jwks.json")
	verifier := auth.NewVerifier(cfg.SupabaseJWTSecret, keys)

	limiter := middleware.NewRateLimiter(redisClient, audit)
	go sweepRateLimits(ctx, limiter)

	// 12. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:       authUC,
		OnboardingUC: onboardingUC,
		CartUC:       cartUC,
		ProductUC:    productUC,
		OrderUC:      orderUC,
		AdminUC:      adminUC,
		AuditUC:      auditUC,
		HealthUC:     healthUC,
		Sessions:     sessions,
		Verifier:     verifier,
		RateLimiter:  limiter,
		Audit:        audit,
		Scanner:      scanner,
		Config:       cfg,
	})

	// 13. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}

func sweepRateLimits(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Sweep(now)
		}
	}
}
