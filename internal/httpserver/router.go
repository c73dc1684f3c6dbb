package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tasktracker/internal/handler"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/rbac"
)

// Pinger reports database readiness; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth *handler.AuthHandler
	Task *handler.TaskHandler
	Tag  *handler.TagHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, jwtSecret string, db Pinger, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogMiddleware(logger))

	// Health endpoints
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	r.GET("/healthz", health)
	r.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", health)

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/signup", h.Auth.SignUp)
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/tasks", RequirePermission(rbac.PermissionReadTask), h.Task.List)
		auth.POST("/tasks", RequirePermission(rbac.PermissionWriteTask), h.Task.Create)
		auth.GET("/tasks/export", RequirePermission(rbac.PermissionExportTask), h.Task.Export)
		auth.GET("/tasks/:id", RequirePermission(rbac.PermissionReadTask), h.Task.Get)
		auth.PATCH("/tasks/:id", RequirePermission(rbac.PermissionWriteTask), h.Task.Update)
		auth.DELETE("/tasks/:id", RequirePermission(rbac.PermissionWriteTask), h.Task.Delete)
		auth.POST("/tasks/:id/complete", RequirePermission(rbac.PermissionWriteTask), h.Task.Complete)

		auth.GET("/tags", RequirePermission(rbac.PermissionReadTag), h.Tag.List)
		auth.POST("/tags", RequirePermission(rbac.PermissionManageTag), h.Tag.Create)
		auth.DELETE("/tags/:id", RequirePermission(rbac.PermissionManageTag), h.Tag.Delete)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
