package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libinstruct/lir-api/internal/handler"
	"github.com/libinstruct/lir-api/internal/middleware"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/internal/repository"
	"github.com/libinstruct/lir-api/internal/service"
	"github.com/libinstruct/lir-api/pkg/cache"
	"github.com/libinstruct/lir-api/pkg/config"
	"github.com/libinstruct/lir-api/pkg/database"
	"github.com/libinstruct/lir-api/pkg/logger"
	"github.com/libinstruct/lir-api/pkg/mailer"
	corsmiddleware "github.com/libinstruct/lir-api/pkg/middleware/cors"
	reqidmiddleware "github.com/libinstruct/lir-api/pkg/middleware/requestid"
	"github.com/libinstruct/lir-api/pkg/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	// Repositories.
	classRepo := repository.NewClassRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient, cfg.Tokens.TTL)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services.
	metricsSvc := service.NewMetricsService()
	settingsSvc := service.NewSettingsService(settingsRepo, logr)
	classSvc := service.NewClassService(classRepo, catalogRepo, tokenRepo, cacheRepo, cfg.Cache.BucketCountTTL, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, cacheRepo, cfg.Cache.CatalogTTL, logr)
	reportSvc := service.NewReportService(classRepo, settingsSvc, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	mail := mailer.NewSMTP(cfg.Mail, logr)
	reminderSvc := service.NewReminderService(classRepo, userRepo, settingsSvc, mail, cfg.BaseURL, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := settingsSvc.Ensure(ctx); err != nil {
		logr.Sugar().Fatalw("failed to prepare settings", "error", err)
	}

	// Daily reminder schedule.
	var reminderSchedule *scheduler.Daily
	if cfg.Reminder.Enabled {
		loc, err := time.LoadLocation(cfg.Reminder.Timezone)
		if err != nil {
			logr.Sugar().Warnw("invalid reminder timezone, using local", "timezone", cfg.Reminder.Timezone)
			loc = time.Local
		}
		reminderSchedule, err = scheduler.NewDaily("attendance-reminders", func(ctx context.Context, now time.Time) {
			result, err := reminderSvc.Run(ctx, now)
			if err != nil {
				logr.Sugar().Errorw("reminder run failed", "error", err)
				return
			}
			metricsSvc.ObserveReminderRun(result.Sent, result.Failed)
		}, scheduler.Config{
			SendAt:   cfg.Reminder.SendAt,
			Location: loc,
			Logger:   logr,
		})
		if err != nil {
			logr.Sugar().Fatalw("failed to build reminder schedule", "error", err)
		}
		reminderSchedule.Start(ctx)
		defer reminderSchedule.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	classHandler := handler.NewClassHandler(classSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	reminderHandler := newReminderHandler(reminderSvc, reminderSchedule)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	read := authed.Group("")
	read.Use(middleware.RequireCapability(models.CapabilityRead))
	read.GET("/classes", classHandler.List)
	read.GET("/classes/:id", classHandler.Get)
	read.GET("/catalog/:kind/values", catalogHandler.Values)
	read.GET("/catalog/flags", catalogHandler.Flags)
	read.GET("/reports", reportHandler.Generate)
	read.GET("/reports/librarians", reportHandler.Librarians)
	read.GET("/settings/durations", settingsHandler.Durations)

	create := authed.Group("")
	create.Use(middleware.RequireCapability(models.CapabilityCreate))
	create.POST("/classes", classHandler.Create)
	create.PUT("/classes/:id", classHandler.Update)
	create.POST("/classes/:id/delete-token", classHandler.RequestDelete)
	create.DELETE("/classes/:id", classHandler.Delete)

	manage := authed.Group("")
	manage.Use(middleware.RequireCapability(models.CapabilityManage))
	manage.POST("/catalog/:kind/values", catalogHandler.AddValue)
	manage.DELETE("/catalog/:kind/values", catalogHandler.RemoveValue)
	manage.PUT("/catalog/flags", catalogHandler.SaveFlags)
	manage.GET("/settings", settingsHandler.Get)
	manage.PUT("/settings", settingsHandler.Update)
	manage.POST("/reminders/run", reminderHandler.Run)
	manage.GET("/reminders/next-run", reminderHandler.NextRun)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// newReminderHandler exists so a nil schedule does not end up wrapped in a
// non-nil interface value.
func newReminderHandler(svc *service.ReminderService, schedule *scheduler.Daily) *handler.ReminderHandler {
	if schedule == nil {
		return handler.NewReminderHandler(svc, nil)
	}
	return handler.NewReminderHandler(svc, schedule)
}
