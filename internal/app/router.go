package app

import (
	"quest_resume_backend/docs"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/middleware"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)，游戏终端只读
	a.registerPublicRoutes(router, c)

	// 2. 管理员接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)

		public.GET("/trainings", c.training.ListTrainings)
		public.GET("/trainings/:id", c.training.GetTraining)
		public.GET("/trainings/:id/progress", c.training.GetProgress)
		public.GET("/stats", c.training.GetStats)
		public.GET("/levels", c.level.ListLevels)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(util.RoleAdmin))
	{
		// 训练
		admin.POST("/trainings", c.training.CreateTraining)
		admin.POST("/trainings/import", c.training.ImportTrainings)
		admin.PUT("/trainings/:id", c.training.UpdateTraining)
		admin.DELETE("/trainings/:id", c.training.DeleteTraining)

		// 任务
		admin.POST("/trainings/:id/quests", c.training.CreateQuest)
		admin.PUT("/trainings/:id/quests/:questId", c.training.UpdateQuest)
		admin.DELETE("/trainings/:id/quests/:questId", c.training.DeleteQuest)

		// 目标
		objectives := admin.Group("/trainings/:id/quests/:questId/objectives")
		{
			objectives.POST("", c.training.CreateObjective)
			objectives.PUT("/:objectiveId", c.training.UpdateObjective)
			objectives.DELETE("/:objectiveId", c.training.DeleteObjective)
			objectives.POST("/:objectiveId/complete", c.training.CompleteObjective)
		}

		// 难度等级
		admin.POST("/levels", c.level.CreateLevel)
		admin.PUT("/levels/:id", c.level.UpdateLevel)
		admin.DELETE("/levels/:id", c.level.DeleteLevel)

		// 视频
		admin.POST("/videos/youtube", c.video.FromYouTube)
		admin.POST("/videos/upload", c.video.Upload)
	}
}
