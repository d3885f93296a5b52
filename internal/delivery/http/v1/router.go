package v1

import (
	"campus-marketplace-backend/config"
	"campus-marketplace-backend/internal/delivery/http/middleware"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/internal/usecase"
	"campus-marketplace-backend/pkg/security"
	"campus-marketplace-backend/pkg/security/antivirus"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC       domain.AuthUsecase
	OnboardingUC domain.OnboardingUsecase
	CartUC       domain.CartUsecase
	ProductUC    domain.ProductUsecase
	OrderUC      domain.OrderUsecase
	AdminUC      domain.AdminUsecase
	AuditUC      domain.AuditUsecase
	HealthUC     usecase.HealthUsecase
	Sessions     *session.Manager
	Verifier     middleware.TokenVerifier
	RateLimiter  *middleware.RateLimiter
	Audit        *security.SecurityLogger
	Scanner      antivirus.Scanner
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL, cfg.IsProduction())) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler())
	r.Use(deps.RateLimiter.Middleware(middleware.GlobalConfig(cfg.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	NewHealthHandler(v1, deps.HealthUC)
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Everything else runs against the caller's session
	api := v1.Group("")
	api.Use(middleware.SessionMiddleware(deps.Sessions, deps.Verifier, middleware.SessionConfig{
		CookieSecure: cfg.CookieSecure,
		CookieMaxAge: cfg.SessionTTL,
	}))
	api.Use(middleware.CSRFMiddleware(cfg.CookieSecure, deps.Audit))

	members := api.Group("", middleware.RequireUser(deps.Audit))
	buyers := api.Group("", middleware.RequireRole(domain.RoleBuyer, "/checkout", deps.Audit))
	sellers := api.Group("", middleware.RequireRole(domain.RoleSeller, "/seller-dashboard", deps.Audit))
	admins := api.Group("", middleware.RequireRole(domain.RoleAdmin, "/admin", deps.Audit))

	loginLimit := deps.RateLimiter.Middleware(middleware.LoginConfig(cfg.RateLimitLoginThreshold, window))
	uploadLimit := deps.RateLimiter.Middleware(middleware.UploadConfig())

	NewAuthHandler(api, deps.AuthUC, loginLimit, cfg.CookieSecure)
	NewOnboardingHandler(api, deps.OnboardingUC)
	NewCartHandler(api, deps.CartUC)
	NewProductHandler(api, members, deps.ProductUC, uploadLimit, deps.Scanner, deps.Audit)
	NewOrderHandler(members, buyers, sellers, deps.OrderUC)
	NewAdminHandler(admins, deps.AdminUC)
	NewAuditHandler(admins, deps.AuditUC)

	return r
}
