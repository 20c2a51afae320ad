package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/tracking-backend-go/internal/config"
	"github.com/sitepulse/tracking-backend-go/internal/handler"
	"github.com/sitepulse/tracking-backend-go/internal/middleware"
	"github.com/sitepulse/tracking-backend-go/internal/service"
)

// SetupRouter wires middleware and routes
func SetupRouter(cfg *config.Config, tracking *service.TrackingService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.RateLimit(120, time.Minute))

	// CORS for the mobile web shell
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Worker tracking API is running",
		})
	})

	attendanceHandler := handler.NewAttendanceHandler(tracking)
	taskHandler := handler.NewTaskHandler(tracking)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		attendance := api.Group("/attendance")
		{
			attendance.POST("/clock-in", attendanceHandler.ClockIn)
			attendance.POST("/clock-out", attendanceHandler.ClockOut)
			attendance.POST("/lunch-start", attendanceHandler.LunchStart)
			attendance.POST("/lunch-end", attendanceHandler.LunchEnd)
			attendance.POST("/absence", attendanceHandler.MarkAbsence)
			attendance.POST("/escalate", attendanceHandler.Escalate)
			attendance.GET("/today", attendanceHandler.Today)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.List)
			tasks.GET("/:id", taskHandler.Get)
			tasks.POST("/:id/start", taskHandler.Start)
			tasks.POST("/:id/pause", taskHandler.Pause)
			tasks.POST("/:id/resume", taskHandler.Resume)
			tasks.POST("/:id/complete", taskHandler.Complete)
			tasks.POST("/:id/progress", taskHandler.Progress)
		}
	}

	return r
}
