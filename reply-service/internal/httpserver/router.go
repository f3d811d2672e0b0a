package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"writemystory/pkg/otel"
	"writemystory/pkg/rbac"
	"writemystory/reply-service/internal/handler"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck reports an error when a dependency is not ready
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	JWTSecret string
	// basic auth for the Postmark webhook; empty disables it
	PostmarkUser     string
	PostmarkPassword string
	Readiness        []ReadinessCheck
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	webhookHandler *handler.WebhookHandler,
	moderationHandler *handler.ModerationHandler,
	outboxHandler *handler.OutboxHandler,
	opts Options,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range opts.Readiness {
			if err := check.Check(ctx); err != nil {
				c.JSON(500, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/email", webhookHandler.Email)
		if opts.PostmarkUser != "" {
			webhooks.POST("/email/postmark", gin.BasicAuth(gin.Accounts{opts.PostmarkUser: opts.PostmarkPassword}), webhookHandler.Postmark)
		} else {
			webhooks.POST("/email/postmark", webhookHandler.Postmark)
		}
		webhooks.POST("/whatsapp", webhookHandler.WhatsApp)
	}

	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(opts.JWTSecret))
	{
		admin.GET("/email-responses", RequirePermission(rbac.PermissionReadResponses), moderationHandler.ListResponses)
		admin.PATCH("/email-responses/:id/status", RequirePermission(rbac.PermissionModerateResponses), moderationHandler.SetStatus)
		admin.POST("/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), outboxHandler.Replay)
		admin.POST("/outbox/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), outboxHandler.ReplayFailed)
	}

	return &Router{Engine: r}
}

// PingCheck adapts a Pinger to a ReadinessCheck
func PingCheck(name string, p Pinger) ReadinessCheck {
	return ReadinessCheck{Name: name, Check: p.Ping}
}
