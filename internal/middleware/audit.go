package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log after successful requests. It covers reads worth
// tracing, such as export downloads; writes are audited by the services.
func Audit(writer auditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if writer == nil || c.Writer.Status() >= 400 {
			return
		}

		actor := models.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
		if claims, ok := Claims(c); ok {
			actor.ID = claims.UserID
		}
		entry := models.NewAuditLog(actor, action, resource, c.Param("id"), map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})
		_ = writer.CreateAuditLog(c.Request.Context(), entry)
	}
}
