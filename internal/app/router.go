package app

import (
	"mystery_hunt_backend/docs"
	"mystery_hunt_backend/internal/middleware"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	secret := a.services.secrets.Get

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 玩家接口
	game := router.Group("/api/game")
	game.Use(middleware.AuthMiddleware(secret))
	a.registerGameRoutes(game, c)

	// 3. 审核接口
	moderation := router.Group("/api/moderation")
	moderation.Use(middleware.AuthMiddleware(secret), middleware.RoleMiddleware(model.Moderator, model.Admin))
	a.registerModerationRoutes(moderation, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerGameRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/mysteries", c.mystery.ListMysteries)
	rg.POST("/mysteries/:id/join", c.mystery.Join)
	rg.GET("/mysteries/:id/levels", c.game.ListLevels)

	rg.GET("/levels/:id", c.game.GetLevel)
	rg.POST("/questions/:questionRef/submit", c.game.Submit)
	rg.POST("/questions/:questionRef/hint", c.game.RequestHint)
	rg.GET("/progress", c.game.GetProgress)
	rg.GET("/images/*ref", c.game.GetImage)
}

func (a *App) registerModerationRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/reviews", c.review.ListPending)
	rg.POST("/reviews/:id/approve", c.review.Approve)
	rg.POST("/reviews/:id/reject", c.review.Reject)
}
