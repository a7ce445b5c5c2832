package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/api/handler"
	"github.com/Huzaifa785/rewear-backend/internal/api/middleware"
	"github.com/Huzaifa785/rewear-backend/pkg/jwt"
	"github.com/Huzaifa785/rewear-backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	swapLimit := middleware.RateLimit(rdb, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 物品模块
			items := authorized.Group("/items")
			{
				items.POST("", h.Item.CreateItem)
				items.GET("/:id", h.Item.GetItem)
				items.PUT("/:id", h.Item.UpdateItem)
				items.POST("/:id/withdraw", h.Item.WithdrawItem)
			}

			// 交换模块（写操作按用户限流）
			swaps := authorized.Group("/swaps")
			{
				swaps.POST("", swapLimit, h.Swap.CreateSwap)
				swaps.GET("", h.Swap.ListSwaps)
				swaps.GET("/stats", h.Swap.GetStats)
				swaps.GET("/calendar.ics", h.Export.ExportSwapCalendar)
				swaps.GET("/:id", h.Swap.GetSwap)
				swaps.PUT("/:id/accept", swapLimit, h.Swap.AcceptSwap)
				swaps.PUT("/:id/reject", swapLimit, h.Swap.RejectSwap)
				swaps.PUT("/:id/cancel", swapLimit, h.Swap.CancelSwap)
				swaps.PUT("/:id/complete", swapLimit, h.Swap.CompleteSwap)
			}

			// 积分模块
			points := authorized.Group("/points")
			{
				points.GET("/me", h.Points.GetMyWallet)
				points.GET("/transactions", h.Points.ListTransactions)
				points.GET("/transactions/export", h.Export.ExportTransactions)
				points.GET("/users/:id/reconcile", middleware.RoleAuth("admin"), h.Points.Reconcile)
				points.POST("/users/:id/adjust", middleware.RoleAuth("admin"), h.Points.Adjust)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}
