package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/middleware"
	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/rolegate"
	"github.com/noah-isme/prefect-api/pkg/config"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/prefect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/prefect-api/pkg/middleware/requestid"
	"github.com/noah-isme/prefect-api/pkg/response"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type requestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RouteRegistrar mounts a resource's routes on its group.
type RouteRegistrar interface {
	Register(group *gin.RouterGroup)
}

// ResourceRoute binds a record resource handler to its path segment.
type ResourceRoute struct {
	Path    string
	Handler RouteRegistrar
}

// Handlers groups every HTTP handler the router mounts. Nil handlers are skipped.
type Handlers struct {
	Auth           *AuthHandler
	Session        *SessionHandler
	Users          *UserHandler
	Resources      []ResourceRoute
	MaterialUpload *MaterialUploadHandler
	Conversations  *ConversationHandler
	Dashboard      *DashboardHandler
	Exports        *ExportHandler
	Health         *HealthHandler
}

// RouterDeps carries the cross-cutting collaborators of the router.
type RouterDeps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tokens  tokenValidator
	Metrics requestObserver
	Audit   auditWriter

	// FilesDir is served under /files when set.
	FilesDir string
}

// NewRouter builds the gin engine serving the API.
func NewRouter(deps RouterDeps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	if h.Health != nil {
		r.GET("/health", h.Health.Health)
		r.GET("/ready", h.Health.Ready)
		r.GET("/metrics", h.Health.Prometheus)
	}
	if deps.FilesDir != "" {
		r.Static("/files", deps.FilesDir)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authRequired := middleware.JWT(deps.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/signup", h.Auth.SignUp)
		auth.POST("/signin", h.Auth.SignIn)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/signout", authRequired, h.Auth.SignOut)
		auth.GET("/me", authRequired, h.Auth.Me)
		auth.POST("/change-password", authRequired, h.Auth.ChangePassword)
	}

	if h.Session != nil {
		session := api.Group("/session", authRequired)
		session.GET("", h.Session.Get)
		session.PUT("/theme", h.Session.UpdateTheme)
		session.PUT("/avatar", h.Session.UploadAvatar)
		session.DELETE("/avatar", h.Session.DeleteAvatar)
	}

	if h.Users != nil {
		users := api.Group("/users", authRequired, adminOnly)
		users.GET("", h.Users.List)
		users.POST("", h.Users.Create)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Delete)
		users.POST("/:id/roles", h.Users.AssignRole)
		users.DELETE("/:id/roles/:role", h.Users.RevokeRole)
	}

	for _, res := range h.Resources {
		group := api.Group("/"+res.Path, authRequired)
		res.Handler.Register(group)
	}
	if h.MaterialUpload != nil {
		api.PUT("/training-materials/:id/file", authRequired, h.MaterialUpload.Upload)
	}

	if h.Conversations != nil {
		conv := api.Group("/conversations")
		conv.GET("/:id/stream", middleware.StreamJWT(deps.Tokens), h.Conversations.Stream)

		conv.Use(authRequired)
		conv.GET("", h.Conversations.List)
		conv.POST("", h.Conversations.Create)
		conv.GET("/:id", h.Conversations.Get)
		conv.PATCH("/:id", h.Conversations.Update)
		conv.DELETE("/:id", h.Conversations.Delete)
		conv.GET("/:id/participants", h.Conversations.ListParticipants)
		conv.POST("/:id/participants", h.Conversations.AddParticipant)
		conv.DELETE("/:id/participants/:userId", h.Conversations.RemoveParticipant)
		conv.GET("/:id/messages", h.Conversations.ListMessages)
		conv.POST("/:id/messages", h.Conversations.SendMessage)
		conv.PATCH("/:id/messages/:messageId", h.Conversations.EditMessage)
		conv.DELETE("/:id/messages/:messageId", h.Conversations.DeleteMessage)
		conv.POST("/:id/read", h.Conversations.MarkRead)
	}

	if h.Dashboard != nil {
		api.GET("/dashboard", authRequired, middleware.RequireRoles(rolegate.NavRoles("dashboard")...), middleware.WithResponseMeta(), h.Dashboard.Summary)
	}

	if h.Exports != nil {
		api.POST("/exports", authRequired, h.Exports.Create)
		api.GET("/exports/:id", authRequired, h.Exports.Status)
		api.GET("/export/:token", middleware.OptionalJWT(deps.Tokens), middleware.Audit(deps.Audit, models.AuditActionDownload, "export"), h.Exports.Download)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	return r
}
