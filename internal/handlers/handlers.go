package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"filegate/api/internal/cache"
	"filegate/api/internal/config"
	"filegate/api/internal/middleware"
	"filegate/api/internal/models"
	"filegate/api/internal/repository"
	"filegate/api/internal/service"
	"filegate/api/internal/store"
	"filegate/api/internal/totp"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	access   *service.AccessService
	shares   *service.ShareService
	policies store.PolicyStore
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	shareRepo := repository.NewShareRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	sessionStore := cache.NewRedisSessionStore(redisClient)
	engine := totp.NewEngine(cfg.Security.TOTPIssuer)

	auth := service.NewAuthService(userRepo, sessionStore, policyRepo, engine, cfg.Security, log)
	access := service.NewAccessService(shareRepo, userRepo, engine, log)
	shares := service.NewShareService(shareRepo, policyRepo, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		access:   access,
		shares:   shares,
		policies: policyRepo,
		db:       db,
		cache:    redisClient,
	}
}

// ShareCleanup exposes the cleanup pass for the job scheduler.
func (h HandlerSet) ShareCleanup() *service.ShareService {
	return h.shares
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/login/totp", h.LoginTOTP)

	protected := router.Group("/auth")
	protected.Use(middleware.Auth(h.auth))
	protected.POST("/totp/setup", h.TOTPSetup)
	protected.POST("/totp/verify", h.TOTPVerify)
	protected.POST("/totp/disable", h.TOTPDisable)
	protected.POST("/logout", h.Logout)
	protected.POST("/password/change", h.ChangePassword)

	user := router.Group("/user")
	user.Use(middleware.Auth(h.auth))
	user.GET("", h.Me)

	files := router.Group("/files")
	files.Use(middleware.Auth(h.auth))
	files.GET("/my", h.ListMyFiles)
	files.POST("/upload", h.Upload)
	files.DELETE("/:fileID", h.DeleteFile)

	share := router.Group("/share")
	share.Use(middleware.OptionalAuth(h.auth))
	share.GET("/:token", h.ShareInfo)
	share.POST("/:token/access", h.ShareAccess)

	admin := router.Group("/admin")
	admin.Use(
		middleware.Auth(h.auth),
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	admin.GET("/policy", h.GetPolicy)
	admin.PATCH("/policy", h.UpdatePolicy)
	admin.POST("/cleanup", h.Cleanup)
}
