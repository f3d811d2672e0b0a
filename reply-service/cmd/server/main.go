package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqcontracts "writemystory/contracts/mq"
	"writemystory/pkg/db"
	"writemystory/pkg/logger"
	"writemystory/pkg/mq"
	"writemystory/pkg/otel"
	"writemystory/pkg/outbox"
	"writemystory/pkg/redis"
	"writemystory/pkg/util"
	"writemystory/reply-service/internal/config"
	"writemystory/reply-service/internal/handler"
	"writemystory/reply-service/internal/httpserver"
	"writemystory/reply-service/internal/mqhandler"
	"writemystory/reply-service/internal/repository"
	"writemystory/reply-service/internal/resolver"
	"writemystory/reply-service/internal/scheduler"
	"writemystory/reply-service/internal/service/media"
	"writemystory/reply-service/internal/service/moderation"
	"writemystory/reply-service/internal/service/reply"

	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting reply-service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    cfg.Otel.ServiceName,
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := redis.Ping(context.Background(), rdb); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	questionRepo := repository.NewQuestionRepository(dbConn)
	memberRepo := repository.NewTeamMemberRepository(dbConn)
	storyRepo := repository.NewStoryRepository(dbConn)
	answerRepo := repository.NewAnswerRepository(dbConn, outboxRepo)
	responseRepo := repository.NewEmailResponseRepository(dbConn, outboxRepo)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Services
	replyResolver := resolver.New(questionRepo, memberRepo, log)
	fetcher := media.NewFetcher(media.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		Timeout:    cfg.MediaTimeout(),
		MaxBytes:   cfg.Twilio.MediaMaxBytes,
	})
	replyService := reply.NewService(replyResolver, responseRepo, answerRepo, fetcher, reply.Config{
		PersistUnmatchedEmail: cfg.Reply.PersistUnmatchedEmail,
		MediaTimeout:          cfg.MediaTimeout(),
		StoreTimeout:          cfg.RequestTimeout(),
	}, log)
	moderationService := moderation.NewService(responseRepo, log)
	replayService := outbox.NewReplayService(outboxRepo, publisher, log)

	// Outbox dispatcher
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.OutboxInterval()).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(rootCtx)

	// MQ Consumer for reply.received
	deduper := util.NewDeduper(rdb, cfg.DedupTTL(), log)
	retryCounter := util.NewRetryCounter(rdb, cfg.DedupTTL())
	replyReceivedHandler := mqhandler.NewReplyReceivedHandler(
		storyRepo, notificationRepo, deduper, retryCounter, publisher, cfg.Consumer.MaxRetries, log,
	)

	log.Info("Initializing MQ consumer...",
		zap.String("queue", cfg.Consumer.Queue),
		zap.String("routing_key", mqcontracts.RoutingKeyReplyReceived),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Consumer.Queue, mqcontracts.RoutingKeyReplyReceived, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(replyReceivedHandler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("reply.received consumer failed", zap.Error(err))
		}
	}()

	// Scheduled jobs
	jobs := scheduler.New(replayService, responseRepo, scheduler.Config{
		OutboxReplaySpec:    cfg.Scheduler.OutboxReplaySpec,
		OutboxReplayLimit:   cfg.Scheduler.OutboxReplayLimit,
		UnmatchedReportSpec: cfg.Scheduler.UnmatchedReportSpec,
		UnmatchedAge:        cfg.UnmatchedAge(),
	}, log)
	if err := jobs.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP Server
	webhookHandler := handler.NewWebhookHandler(replyService, handler.WebhookConfig{
		TwilioAuthToken:  cfg.Twilio.AuthToken,
		TwilioWebhookURL: cfg.Twilio.WebhookURL,
		RequestTimeout:   cfg.RequestTimeout(),
	}, log)
	moderationHandler := handler.NewModerationHandler(moderationService, log)
	outboxHandler := handler.NewOutboxHandler(replayService, log)

	router := httpserver.NewRouter(webhookHandler, moderationHandler, outboxHandler, httpserver.Options{
		JWTSecret:        cfg.JWT.Secret,
		PostmarkUser:     cfg.Postmark.WebhookUser,
		PostmarkPassword: cfg.Postmark.WebhookPassword,
		Readiness: []httpserver.ReadinessCheck{
			httpserver.PingCheck("db", dbConn),
			{Name: "redis", Check: func(ctx context.Context) error { return redis.Ping(ctx, rdb) }},
			httpserver.PingCheck("mq", publisher),
		},
	})

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("reply-service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down reply-service gracefully...")

	jobs.Stop()
	consumer.Stop()
	cancelRoot()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("reply-service shutdown complete")
}
