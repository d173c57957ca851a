package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/handler"
	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/repository"
	"github.com/noah-isme/prefect-api/internal/service"
	"github.com/noah-isme/prefect-api/pkg/config"
	"github.com/noah-isme/prefect-api/pkg/jobs"
	"github.com/noah-isme/prefect-api/pkg/realtime"
	"github.com/noah-isme/prefect-api/pkg/storage"
)

// app holds the wired server and the background loops serve supervises.
type app struct {
	router  *gin.Engine
	hub     *realtime.Hub
	relay   *realtime.RedisRelay
	queue   *jobs.Queue
	exports *service.ExportJobService
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, rdb *redis.Client) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	audit := repository.NewAuditRepository(db)

	blobs, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	hub := realtime.NewHub(realtime.HubOptions{
		Logger:       logr.Named("realtime"),
		Observer:     metrics,
		WriteTimeout: cfg.Realtime.WriteTimeout,
	})
	var publisher realtime.Publisher = hub
	var relay *realtime.RedisRelay
	if cfg.Realtime.RelayEnabled {
		if rdb == nil {
			logr.Warn("realtime relay requested without redis; events stay on this instance")
		} else {
			relay = realtime.NewRedisRelay(rdb, cfg.Realtime.ChannelPrefix, hub, logr.Named("relay"))
			publisher = relay
		}
	}

	authSvc := service.NewAuthService(users, audit, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(users, audit, blobs, cfg.Storage.AvatarSize, validate, logr)
	sessionSvc := service.NewSessionService(authSvc)

	attendanceRepo := repository.NewAttendanceRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	dutyRepo := repository.NewDutyRepository(db)
	gateLogRepo := repository.NewGateLogRepository(db)
	weeklyReportRepo := repository.NewWeeklyReportRepository(db)

	attendance := service.NewAttendanceService(attendanceRepo, audit, validate, logr)
	complaints := service.NewComplaintService(complaintRepo, audit, validate, logr)
	incidents := service.NewIncidentService(incidentRepo, audit, validate, logr)
	duties := service.NewDutyService(dutyRepo, audit, validate, logr)
	applications := service.NewApplicationService(repository.NewApplicationRepository(db), audit, validate, logr)
	gateLogs := service.NewGateLogService(gateLogRepo, audit, validate, logr)
	events := service.NewEventService(repository.NewEventRepository(db), audit, validate, logr)
	materials := service.NewTrainingMaterialService(repository.NewTrainingMaterialRepository(db), blobs, service.MaterialLimits{
		MaxFileSize:  cfg.Storage.MaterialsMaxFileSize,
		AllowedMIMEs: cfg.Storage.MaterialsAllowedMIME,
	}, audit, validate, logr)
	weeklyReports := service.NewWeeklyReportService(weeklyReportRepo, audit, validate, logr)

	conversations := service.NewConversationService(repository.NewConversationRepository(db), publisher, audit, validate, logr, cfg.Realtime.MessagePage)

	handlers := handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Session: handler.NewSessionHandler(sessionSvc, userSvc),
		Users:   handler.NewUserHandler(userSvc),
		Resources: []handler.ResourceRoute{
			{Path: "attendance", Handler: handler.NewResourceHandler[models.Attendance, models.CreateAttendanceRequest, models.UpdateAttendanceRequest](attendance)},
			{Path: "complaints", Handler: handler.NewResourceHandler[models.Complaint, models.CreateComplaintRequest, models.UpdateComplaintRequest](complaints)},
			{Path: "incidents", Handler: handler.NewResourceHandler[models.Incident, models.CreateIncidentRequest, models.UpdateIncidentRequest](incidents)},
			{Path: "duties", Handler: handler.NewResourceHandler[models.Duty, models.CreateDutyRequest, models.UpdateDutyRequest](duties)},
			{Path: "applications", Handler: handler.NewResourceHandler[models.Application, models.CreateApplicationRequest, models.UpdateApplicationRequest](applications)},
			{Path: "gate-logs", Handler: handler.NewResourceHandler[models.GateLog, models.CreateGateLogRequest, models.UpdateGateLogRequest](gateLogs)},
			{Path: "events", Handler: handler.NewResourceHandler[models.Event, models.CreateEventRequest, models.UpdateEventRequest](events)},
			{Path: "training-materials", Handler: handler.NewResourceHandler[models.TrainingMaterial, models.CreateTrainingMaterialRequest, models.UpdateTrainingMaterialRequest](materials)},
			{Path: "weekly-reports", Handler: handler.NewResourceHandler[models.WeeklyReport, models.CreateWeeklyReportRequest, models.UpdateWeeklyReportRequest](weeklyReports)},
		},
		MaterialUpload: handler.NewMaterialUploadHandler(materials),
		Conversations:  handler.NewConversationHandler(conversations, hub, cfg.CORS.AllowedOrigins, logr),
	}

	if cfg.Dashboard.Enabled {
		cache := service.NewCacheService(repository.NewCacheRepository(rdb, cfg.Redis.KeyPrefix, logr.Named("cache")), metrics, cfg.Dashboard.CacheTTL, logr, rdb != nil)
		dashboard := service.NewDashboardService(repository.NewDashboardRepository(db), cache, metrics, logr, service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL})
		for _, notifier := range []interface{ OnChange(service.ChangeHook) }{attendance, complaints, incidents, duties, applications, events} {
			notifier.OnChange(dashboard.Invalidate)
		}
		handlers.Dashboard = handler.NewDashboardHandler(dashboard)
	}

	a := &app{hub: hub, relay: relay}

	if cfg.Exports.Enabled {
		exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir, "")
		if err != nil {
			return nil, fmt.Errorf("init export storage: %w", err)
		}
		exporter := service.NewExportService(service.ExportSources{
			Attendance:    attendanceRepo,
			Complaints:    complaintRepo,
			Incidents:     incidentRepo,
			Duties:        dutyRepo,
			GateLogs:      gateLogRepo,
			WeeklyReports: weeklyReportRepo,
		}, exportFiles, storage.NewSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL), service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)
		exportRepo := repository.NewExportJobRepository(db)
		worker := service.NewExportWorker(exportRepo, exporter, metrics, logr)
		a.queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:     cfg.Exports.WorkerConcurrency,
			MaxRetries:  cfg.Exports.WorkerRetries,
			JobTimeout:  cfg.Exports.JobTimeout,
			Logger:      logr,
			OnExhausted: worker.MarkExhausted,
		})
		metrics.TrackQueue("exports", a.queue.Stats)
		a.exports = service.NewExportJobService(exportRepo, a.queue, exporter, validate, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		})
		handlers.Exports = handler.NewExportHandler(a.exports)
	}

	checks := map[string]handler.Pinger{"database": db}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	handlers.Health = handler.NewHealthHandler(metrics.Handler(), checks)

	a.router = handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Logger:   logr,
		Tokens:   authSvc,
		Metrics:  metrics,
		Audit:    audit,
		FilesDir: blobs.Dir(),
	}, handlers)
	return a, nil
}
