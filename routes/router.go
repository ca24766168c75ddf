package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/config"
	"github.com/teddywilson/wipshare-sub002/controllers"
	"github.com/teddywilson/wipshare-sub002/middleware"
	"github.com/teddywilson/wipshare-sub002/storage"
	"github.com/teddywilson/wipshare-sub002/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store *storage.Client) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestLogger())
	r.Use(utils.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	trackController := controllers.NewTrackController(db, store)
	uploadController := controllers.NewUploadController(db, store)
	statsController := controllers.NewStatsController(db)
	tierController := controllers.NewTierController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/send-email-code", authController.SendEmailCode)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public catalog and browsing
	api.GET("/tiers", tierController.ListTiers)

	tracksGroup := api.Group("/tracks")
	tracksGroup.GET("", trackController.ListTracks)
	tracksGroup.GET("/:id", trackController.GetTrack)

	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/tracks", trackController.ListUserTracks)
	api.GET("/user/by-username/:username", authController.GetUserPublicByUsername)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/users", authController.ListUsers)
	protected.POST("/uploads/presign", uploadController.PresignUpload)
	protected.POST("/tracks", trackController.CreateTrack)
	protected.PUT("/tracks/:id", trackController.UpdateTrack)
	protected.DELETE("/tracks/:id", trackController.DeleteTrack)
	protected.GET("/tracks/:id/download", uploadController.PresignDownload)
	protected.GET("/tracks/:id/stats", statsController.TrackStats)
	protected.POST("/tracks/:id/comments", trackController.CreateComment)
	protected.DELETE("/comments/:commentId", trackController.DeleteComment)
	protected.GET("/users/me/tracks", trackController.ListMyTracks)
	protected.GET("/me/usage", statsController.MyUsage)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
