package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/aquanet/incident-service/internal/api/http"
	"github.com/aquanet/incident-service/internal/api/http/handlers"
	"github.com/aquanet/incident-service/internal/config"
	"github.com/aquanet/incident-service/internal/delivery"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/observability"
	"github.com/aquanet/incident-service/internal/persistence"
	"github.com/aquanet/incident-service/internal/repository"
	"github.com/aquanet/incident-service/internal/service"
	"github.com/aquanet/incident-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	reportRepo := repository.NewReportRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	responderRepo := repository.NewResponderRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	publisher := delivery.NewRedisPublisher(redis.Client)

	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: reportRepo,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ReportRepo:    reportRepo,
		ResponderRepo: responderRepo,
		Lifecycle:     reportService,
		Dispatcher:    dispatcher,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		ReportRepo:  reportRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		EscalationRepo:   escalationRepo,
		Publisher:        publisher,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          metrics,
	})
	notificationService.RegisterHandlers()

	monitor := worker.NewEscalationMonitor(worker.MonitorDependencies{
		EscalationRepo:   escalationRepo,
		NotificationRepo: notificationRepo,
		Publisher:        publisher,
		Locker:           worker.NewRedisLocker(redis.Client),
		Logger:           logger,
		Metrics:          metrics,
		Interval:         cfg.Escalation.Interval(),
		Threshold:        cfg.Escalation.Threshold(),
		ScanTimeout:      cfg.Escalation.ScanTimeout(),
	})
	monitor.RegisterHandlers(dispatcher)
	monitor.Start(ctx)

	hub := delivery.NewHub(notificationRepo, logger, delivery.HubConfig{
		BacklogLimit:  cfg.Delivery.BacklogLimit,
		SendQueueSize: cfg.Delivery.SendQueueSize,
	})
	go hub.RunRedisFeed(ctx, redis.Client)

	// The websocket feed runs on its own net/http listener; fiber serves
	// only the REST surface.
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws/notifications", hub.HandleWS)
	wsServer := &http.Server{Addr: cfg.Delivery.WSAddr, Handler: wsMux}
	go func() {
		logger.Info("websocket feed listening", zap.String("addr", cfg.Delivery.WSAddr))
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("websocket listen", zap.Error(err))
		}
	}()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Reports:       handlers.NewReportsHandler(reportService, messageService),
		StaffReports:  handlers.NewStaffReportsHandler(reportService, assignmentService, messageService, responderRepo),
		Notifications: handlers.NewNotificationsHandler(notificationService),
		Escalations:   handlers.NewEscalationsHandler(notificationService),
	})

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = app.Shutdown()
	monitor.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
