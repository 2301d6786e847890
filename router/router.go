package router

import (
	"net/http"
	"time"

	"jars/api"
	"jars/config"
	_ "jars/docs"
	"jars/logger"
	"jars/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// 登录接口每个 IP 每分钟最多尝试次数
const loginAttemptsPerMinute = 10

// Handlers 路由用到的全部处理器
type Handlers struct {
	Health      *api.HealthHandler
	Auth        *api.AuthHandler
	Profile     *api.ProfileHandler
	Jar         *api.JarHandler
	Income      *api.IncomeHandler
	Transaction *api.TransactionHandler
	Savings     *api.SavingsHandler
	Analytics   *api.AnalyticsHandler
	Export      *api.ExportHandler
	Assistant   *api.AssistantHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(logger.GinLogger(), gin.Recovery())

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		auth := v1.Group("/auth")
		auth.Use(middleware.LoginRateLimit(loginAttemptsPerMinute, time.Minute))
		{
			auth.GET("/login-url", h.Auth.LoginURL)
			auth.GET("/callback", h.Auth.Callback)
		}

		// 罐子类别（无需登录）
		v1.GET("/jars/categories", h.Jar.Categories)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(), middleware.WriteRateLimit(cfg.Server.WriteRateLimit, time.Minute))
		{
			authorized.GET("/profile", h.Profile.Get)
			authorized.PUT("/profile", h.Profile.Update)

			jars := authorized.Group("/jars")
			{
				jars.POST("/setup", h.Jar.Setup)
				jars.GET("/dashboard", h.Jar.Dashboard)
				jars.POST("/income", h.Income.Create)
				jars.GET("/income", h.Income.List)
				jars.POST("/swap", h.Jar.Swap)
				jars.DELETE("/data", h.Jar.DeleteData)
			}

			transactions := authorized.Group("/transactions")
			{
				transactions.POST("", h.Transaction.Create)
				transactions.GET("", h.Transaction.List)
				transactions.GET("/summary", h.Transaction.Summary)
				transactions.DELETE("/:id", h.Transaction.Delete)
			}

			savings := authorized.Group("/savings")
			{
				savings.GET("/target", h.Savings.GetTarget)
				savings.POST("/target", h.Savings.SetTarget)
				savings.GET("/projection", h.Savings.Projection)
			}

			authorized.GET("/analytics/forecast", h.Analytics.Forecast)

			export := authorized.Group("/export")
			{
				export.GET("/csv", h.Export.ExportCSV)
				export.GET("/excel", h.Export.ExportExcel)
			}

			tools := authorized.Group("/assistant/tools")
			{
				tools.GET("", h.Assistant.Tools)
				tools.POST("/:name", h.Assistant.Execute)
			}
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
