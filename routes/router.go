package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/config"
	"github.com/freemirror/yatube/controllers"
	"github.com/freemirror/yatube/metrics"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/utils"
	"github.com/freemirror/yatube/web"
)

// LoginURL is where LoginRequired sends anonymous callers.
const LoginURL = "/auth/login/"

// Deps is everything the router needs. Mailer and Metrics may be nil.
type Deps struct {
	Config  config.AppConfig
	DB      *gorm.DB
	Cache   cache.Store
	Files   storage.Storage
	Mailer  *utils.Mailer
	Metrics *metrics.Metrics
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}

	blacklist := utils.NewTokenBlacklist(d.Cache)
	r.Use(middleware.Authenticate(blacklist))

	var mediaURL func(string) string
	if d.Files != nil {
		mediaURL = d.Files.URL
	}
	tmpl, err := web.Templates(mediaURL)
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	if local, ok := d.Files.(*storage.LocalStorage); ok {
		r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), local.Root())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	svc := services.New(d.DB, d.Files)
	postController := controllers.NewPostController(d.DB, svc, d.Mailer, int64(cfg.MaxImageMB)<<20)
	followController := controllers.NewFollowController(svc)
	authController := controllers.NewAuthController(svc, blacklist, time.Duration(cfg.TokenTTLHours)*time.Hour)
	adminController := controllers.NewAdminController(d.Cache)

	indexTTL := time.Duration(cfg.IndexCacheSeconds) * time.Second
	r.GET("/", middleware.CachePage(d.Cache, indexTTL, "index", d.Metrics), postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:id/", postController.Detail)

	protected := r.Group("")
	protected.Use(middleware.LoginRequired(LoginURL))
	protected.GET("/create/", postController.CreateForm)
	protected.POST("/create/", postController.Create)
	protected.GET("/posts/:id/edit/", postController.EditForm)
	protected.POST("/posts/:id/edit/", postController.Edit)
	protected.POST("/posts/:id/delete/", postController.Delete)
	protected.POST("/posts/:id/comment/", postController.AddComment)
	protected.GET("/follow/", followController.Index)
	protected.POST("/profile/:username/follow/", followController.Follow)
	protected.POST("/profile/:username/unfollow/", followController.Unfollow)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.GET("/login/", authController.LoginForm)
	authGroup.POST("/login/", authController.Login)
	authGroup.GET("/signup/", authController.SignupForm)
	authGroup.POST("/signup/", authController.Signup)
	authGroup.POST("/logout/", authController.Logout)
	authGroup.GET("/me/", middleware.LoginRequired(LoginURL), authController.Me)

	admin := r.Group("/admin")
	admin.Use(middleware.LoginRequired(LoginURL), middleware.AdminRequired())
	admin.POST("/cache/clear/", adminController.ClearCache)

	r.NoRoute(controllers.NotFound)

	return r, nil
}
