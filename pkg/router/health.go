package router

import (
	"context"
	"os"
	"runtime"
	"time"

	"realtime-chat-demo/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	healthHandler := func(c *gin.Context) {
		// Check database connection
		dbStatus := "ok"
		if err := r.Container.DB.Exec("SELECT 1").Error; err != nil {
			dbStatus = err.Error()
			r.Logger.Error("Database health check failed", "error", err)
		}

		// Check Redis connection
		redisStatus := "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := r.Container.Redis.Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
			r.Logger.Error("Redis health check failed", "error", err)
		}

		// Get count of active connections
		activeConnections := r.Hub.ConnectionCount()

		// Get memory stats
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		// Prepare response
		c.JSON(200, gin.H{
			"status":         "ok",
			"version":        os.Getenv("APP_VERSION"),
			"timestamp":      time.Now().Format(time.RFC3339),
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
			"components": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
				"websocket": gin.H{
					"status":             "ok",
					"active_connections": activeConnections,
				},
			},
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)
}

// AddReadiness exposes the aggregate status of a background health
// checker. Load balancers poll this rather than the detailed /health.
func (r *Router) AddReadiness(checker *health.Checker) {
	r.Engine.GET("/readyz", gin.WrapF(checker.HTTPHandler()))
}
