package main

import (
	"context"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/handlers"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/internal/storage"
	"github.com/huangang/studiodesk/backend/internal/utils"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg         *config.Config
	hub         *realtime.Hub
	relay       *realtime.RedisBroadcaster
	redisClient *redis.Client
	notifier    *realtime.Notifier
	taskQueue   services.TaskQueue
	worker      *services.Worker
	maintenance *services.MaintenanceService
	activity    *services.ActivityService
	guard       *services.Guard

	healthHandler      *handlers.HealthHandler
	authHandler        *handlers.AuthHandler
	projectHandler     *handlers.ProjectHandler
	budgetHandler      *handlers.BudgetHandler
	invoiceHandler     *handlers.InvoiceHandler
	chatHandler        *handlers.ChatHandler
	sketchHandler      *handlers.SketchHandler
	inviteHandler      *handlers.InviteHandler
	summaryHandler     *handlers.SummaryHandler
	activityHandler    *handlers.ActivityHandler
	maintenanceHandler *handlers.MaintenanceHandler
	eventsHandler      *handlers.EventsHandler
	storageDir         string
}

// bootstrap initializes all application dependencies: database, realtime, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	svc := &appServices{cfg: cfg}

	// Realtime: the hub always delivers locally; with redis every instance
	// publishes to redis and relays back into its own hub.
	svc.hub = realtime.NewHub(cfg.Realtime.BufferSize)
	var broadcaster realtime.Broadcaster = svc.hub
	if cfg.Realtime.Driver == "redis" {
		svc.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := svc.redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, realtime falls back to local hub")
			svc.redisClient.Close()
			svc.redisClient = nil
		} else {
			svc.relay = realtime.NewRedisBroadcaster(svc.redisClient, svc.hub, cfg.Realtime.ChannelPrefix)
			broadcaster = svc.relay
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Realtime relay using Redis")
		}
	}
	svc.notifier = realtime.NewNotifier(broadcaster, time.Duration(cfg.Realtime.PublishTimeoutSec)*time.Second)

	svc.guard = services.NewGuard(db)
	svc.activity = services.NewActivityService(db)

	authService := services.NewAuthService(db, &cfg.JWT, &cfg.LDAP)
	projectService := services.NewProjectService(db, svc.guard, svc.notifier)
	budgetService := services.NewBudgetService(db, svc.guard, svc.notifier)
	calendar := services.NewBusinessCalendar(cfg.Invoice.HolidayCountry)
	invoiceService := services.NewInvoiceService(db, svc.guard, calendar, cfg.Invoice.DueBusinessDays)
	chatService := services.NewChatService(db, svc.guard, svc.notifier)
	sketchService := services.NewSketchService(db, svc.guard, svc.notifier)
	summaryService := services.NewStatusSummaryService(db, svc.guard, services.NewLLM(&cfg.AI))

	// Invitations go through asynq when redis is enabled, otherwise in-process.
	emailService := services.NewEmailService(&cfg.Email)
	processor := services.InviteMailProcessor(emailService)
	svc.taskQueue = services.NewTaskQueue(&cfg.Redis, processor)
	if svc.taskQueue.IsAsync() {
		svc.worker = services.NewWorker(&cfg.Redis, processor)
		if svc.worker != nil {
			if err := svc.worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start task worker")
			}
		}
	}
	inviteService := services.NewInviteService(db, svc.guard, svc.taskQueue, cfg.Server.AppURL)

	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicURL, int64(cfg.Storage.MaxUploadMB)<<20)
	if err != nil {
		logger.Fatalf("Failed to prepare upload directory: %v", err)
	}
	svc.storageDir = store.Dir()

	svc.maintenance = services.NewMaintenanceService(db, &cfg.Maintenance, svc.activity)
	if err := svc.maintenance.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start maintenance scheduler")
	}

	svc.healthHandler = handlers.NewHealthHandler(db, svc.hub, svc.taskQueue, svc.relay)
	svc.authHandler = handlers.NewAuthHandler(authService)
	svc.projectHandler = handlers.NewProjectHandler(projectService)
	svc.budgetHandler = handlers.NewBudgetHandler(budgetService)
	svc.invoiceHandler = handlers.NewInvoiceHandler(invoiceService)
	svc.chatHandler = handlers.NewChatHandler(chatService)
	svc.sketchHandler = handlers.NewSketchHandler(sketchService, store)
	svc.inviteHandler = handlers.NewInviteHandler(inviteService)
	svc.summaryHandler = handlers.NewSummaryHandler(summaryService)
	svc.activityHandler = handlers.NewActivityHandler(svc.activity, svc.guard)
	svc.maintenanceHandler = handlers.NewMaintenanceHandler(svc.maintenance)
	svc.eventsHandler = handlers.NewEventsHandler(svc.hub, svc.guard, time.Duration(cfg.Realtime.HeartbeatSeconds)*time.Second)

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.maintenance.StopScheduler()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	s.notifier.Wait()
	if s.relay != nil {
		s.relay.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
}
