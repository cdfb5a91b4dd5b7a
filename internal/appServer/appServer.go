package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/clock"
	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/realtime"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/ds124wfegd/afritix/internal/transport"
	"github.com/ds124wfegd/afritix/internal/worker"

	"github.com/ds124wfegd/afritix/pkg/auth"
	"github.com/ds124wfegd/afritix/pkg/kafka"
	"github.com/ds124wfegd/afritix/pkg/mailer"
	"github.com/ds124wfegd/afritix/pkg/postgres"
	"github.com/ds124wfegd/afritix/pkg/push"
	"github.com/ds124wfegd/afritix/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const connectTimeout = 30 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	// No WriteTimeout: it would cut long-lived websocket connections. REST
	// requests are bounded by the timeout middleware instead.
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func NewServer(cfg *config.Config) {

	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(ctx, db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	ticketTypeRepo := repository.NewTicketTypeRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	scheduledRepo := repository.NewScheduledNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	pushTokenRepo := repository.NewPushTokenRepository(db)

	// Realtime fan-out: in-process, or relayed through Redis when several
	// instances run behind a load balancer.
	hub := realtime.NewHub()
	var broadcaster realtime.Broadcaster = hub
	if cfg.Realtime.Backplane == "redis" {
		redisClient, err := redis.Connect(ctx, &cfg.Redis, connectTimeout)
		if err != nil {
			logrus.Fatalf("Failed to initialize Redis backplane: %v", err)
		}
		defer redisClient.Close()

		relay := realtime.NewRedisBroadcaster(redisClient, cfg.Realtime.Channel, hub)
		go relay.Serve(ctx)
		broadcaster = relay
		logrus.Info("Redis backplane started")
	}

	// Email: SMTP when enabled, optionally behind the RabbitMQ outbox.
	var emailSender mailer.Mailer = mailer.NewLogMailer()
	if cfg.Email.Enabled {
		emailSender = mailer.NewSMTPSender(&cfg.Email)
	}
	notificationMailer := emailSender
	if cfg.RabbitMQ.URL != "" {
		outbox, err := mailer.DialOutbox(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, connectTimeout)
		if err != nil {
			logrus.Errorf("Failed to initialize email outbox: %v. Sending email inline...", err)
		} else {
			defer outbox.Close()
			go func() {
				if err := outbox.Consume(ctx, emailSender); err != nil {
					logrus.Errorf("Email outbox consumer error: %v", err)
				}
			}()
			notificationMailer = outbox
			logrus.Info("Email outbox consumer started")
		}
	}

	pushClient := push.NewClient(&cfg.Push)
	if !cfg.Push.Enabled {
		logrus.Warn("Push delivery disabled")
	}

	var stream kafka.Producer = kafka.NewLogProducer()
	if cfg.Kafka.Brokers != "" {
		stream = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer stream.Close()

	// Initialize services
	clk := clock.NewSystem()
	notificationService := service.NewNotificationService(service.NotificationDeps{
		Notifications: notificationRepo,
		Scheduled:     scheduledRepo,
		Preferences:   preferenceRepo,
		PushTokens:    pushTokenRepo,
		Users:         userRepo,
		Events:        eventRepo,
		Orders:        orderRepo,
		Broadcaster:   broadcaster,
		Mailer:        notificationMailer,
		Push:          pushClient,
		Templates:     service.DefaultTemplates(),
		Clock:         clk,
	})
	inventoryService := service.NewInventoryService(ticketTypeRepo, broadcaster, stream)
	paymentService := service.NewPaymentService(clk)
	eventService := service.NewEventService(eventRepo, ticketTypeRepo, orderRepo, broadcaster, notificationService, clk)
	bookingService := service.NewBookingService(
		eventRepo, ticketTypeRepo, orderRepo,
		inventoryService, paymentService, notificationService,
		stream, clk, cfg.Booking,
	)

	// Workers
	scheduler := worker.NewNotificationScheduler(scheduledRepo, notificationService, clk, cfg.Worker)
	if err := scheduler.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start notification scheduler: %v", err)
	}

	expiryWorker := worker.NewOrderExpiryWorker(bookingService, clk, cfg.Worker.OrderExpiryInterval)
	go expiryWorker.Start(ctx)
	logrus.Info("Order expiry worker started")

	// Websocket gateway
	verifier := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	gateway := realtime.NewGateway(hub, realtime.NewMemoryRegistry(), broadcaster, verifier, notificationService, realtime.GatewayConfig{
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
		AuthTimeout:    cfg.Realtime.AuthTimeout,
		SendBuffer:     cfg.Realtime.SendBuffer,
	})

	// Initialize handlers
	handlers := transport.Handlers{
		Events:        transport.NewEventHandler(eventService, inventoryService, notificationService),
		Orders:        transport.NewOrderHandler(bookingService),
		Notifications: transport.NewNotificationHandler(notificationService),
	}

	if cfg.Server.Mode == "release" || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(handlers, verifier, gateway, transport.Options{
		Debug:          !cfg.IsProduction(),
		RequestTimeout: cfg.Server.Timeout,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
	})

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	cancel()
	scheduler.Stop()
}
