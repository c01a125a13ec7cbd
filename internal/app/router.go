package app

import (
	"studyforge_backend/internal/config"
	"studyforge_backend/internal/middleware"
	"studyforge_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由：计费与生成调用一律要求有效凭证
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 文档处理管线
		authGroup.POST("/study/process", c.processing.Submit)
		authGroup.GET("/study/jobs/:id", c.processing.GetJob)

		// 积分账本
		authGroup.GET("/credits", c.credit.GetBalance)

		// 学习会话历史
		authGroup.GET("/sessions", c.session.List)
		authGroup.GET("/sessions/:sessionId", c.session.Get)
		authGroup.DELETE("/sessions/:sessionId", c.session.Delete)

		// 测验状态机
		authGroup.GET("/sessions/:sessionId/assessment", c.assessment.State)
		authGroup.POST("/sessions/:sessionId/assessment/load", c.assessment.Load)
		authGroup.POST("/sessions/:sessionId/assessment/answer", c.assessment.Answer)
		authGroup.POST("/sessions/:sessionId/assessment/next", c.assessment.Next)
		authGroup.POST("/sessions/:sessionId/assessment/previous", c.assessment.Previous)
		authGroup.POST("/sessions/:sessionId/assessment/finish", c.assessment.Finish)
		authGroup.POST("/sessions/:sessionId/assessment/restart", c.assessment.Restart)
		authGroup.POST("/sessions/:sessionId/assessment/generate", c.assessment.Generate)

		// 会话范围的派生内容
		authGroup.POST("/sessions/:sessionId/study-plan", c.derived.StudyPlan)
		authGroup.POST("/sessions/:sessionId/probable-questions", c.derived.ProbableQuestions)
		authGroup.POST("/sessions/:sessionId/custom-exam", c.derived.CustomExam)
	}
}
