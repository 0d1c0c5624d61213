package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/controllers"
	"github.com/kamtour/tourism/middleware"
	"github.com/kamtour/tourism/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store utils.FileStore, mailer utils.Mailer) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	utils.SetupValidator()

	r := gin.New()
	// Requests go to their own rolling file when GinPath is set.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))
	r.MaxMultipartMemory = int64(cfg.MaxImageKB+512) * 1024

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(cfg.StorageURL, cfg.StorageRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db, store)
	publicController := controllers.NewPublicController(db, store)
	taxonomyController := controllers.NewTaxonomyController(db)
	contactController := controllers.NewContactController(mailer)
	statsController := controllers.NewStatsController(db, store)

	pageViews := middleware.PageViewRecorder(db)
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/posts", publicController.ListPosts)
	api.GET("/posts/:id", pageViews, publicController.ShowPost)
	api.GET("/categories", taxonomyController.ListCategories)
	api.GET("/provinces", taxonomyController.ListProvinces)

	contactGroup := api.Group("/contact")
	contactGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	contactGroup.GET("/captcha", contactController.Captcha)
	contactGroup.POST("", contactController.Send)

	reader := api.Group("/user")
	reader.GET("/posts", publicController.Grid)
	reader.GET("/hotels", publicController.Hotels)
	reader.GET("/posts/:id", pageViews, publicController.ShowPost)
	reader.POST("/posts/:id/comments", middleware.AuthRequired(), middleware.RateLimit(cfg.RateLimitPerMinute), publicController.AddComment)
	reader.DELETE("/posts/:id/comments/:commentId", middleware.AuthRequired(), publicController.DeleteComment)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/dashboard", statsController.Dashboard)
	admin.GET("/posts", postController.ListPosts)
	admin.GET("/posts/:id", postController.GetPost)
	admin.POST("/posts", postController.CreatePost)
	admin.PUT("/posts/:id", postController.UpdatePost)
	admin.DELETE("/posts/:id", postController.DeletePost)
	admin.GET("/categories", taxonomyController.ListCategories)
	admin.POST("/categories", taxonomyController.CreateCategory)
	admin.PUT("/categories/:id", taxonomyController.UpdateCategory)
	admin.DELETE("/categories/:id", taxonomyController.DeleteCategory)
	admin.GET("/provinces", taxonomyController.ListProvinces)
	admin.POST("/provinces", taxonomyController.CreateProvince)
	admin.PUT("/provinces/:id", taxonomyController.UpdateProvince)
	admin.DELETE("/provinces/:id", taxonomyController.DeleteProvince)
	admin.GET("/users", authController.ListUsers)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
