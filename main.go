package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/api"
	"github.com/saif-ali01/projectXAPI/internal/cache"
	"github.com/saif-ali01/projectXAPI/internal/config"
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/email"
	"github.com/saif-ali01/projectXAPI/internal/logger"
	"github.com/saif-ali01/projectXAPI/internal/outbox"
	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/storage"
	"github.com/saif-ali01/projectXAPI/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

const workerConcurrency = 10

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	defer appLogger.Sync()

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal("Application stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, appLogger *zap.Logger) error {
	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		return fmt.Errorf("invalid run mode: %s", cfg.RunMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	setupCtx, setupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer setupCancel()
	if err := db.EnsureIndexes(setupCtx, mongoDb); err != nil {
		return err
	}
	if err := db.SyncBillSerialCounter(setupCtx, mongoDb); err != nil {
		return err
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient, appLogger); err != nil {
			appLogger.Error("Error disconnecting from Redis", zap.Error(err))
		}
	}()

	txManager := db.NewNoOpTransactionManager()
	if cfg.MongoTransactions {
		txManager = db.NewMongoTransactionManager(mongoClient)
	}

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)
	errChan := make(chan error, 2)

	serve := func(name string, srv *http.Server) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appLogger.Info("HTTP server listening", zap.String("server", name), zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	// The service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan, appLogger),
	}
	serve("service", serviceSrv)

	var mainApiSrv *http.Server
	var workerSrv *asynq.Server

	appLogger.Info("Starting application", zap.String("mode", cfg.RunMode))

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		deps := api.Dependencies{
			DB:        mongoDb,
			Redis:     redisClient,
			TxManager: txManager,
		}
		if cfg.AwsS3Bucket != "" {
			objectStorage, err := storage.NewS3Storage(ctx, cfg, appLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize S3 storage: %w", err)
			}
			deps.ObjectStorage = objectStorage
		} else {
			appLogger.Warn("AWS_S3_BUCKET not set, report export is disabled")
		}

		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(ctx, cfg, deps, appLogger),
		}
		serve("api", mainApiSrv)
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		taskClient := tasks.NewClient(redisClient)
		defer taskClient.Close()

		processor := tasks.NewTaskProcessor(newEmailSender(cfg, redisClient, appLogger), services.NewEmailTemplateService(mongoDb), appLogger)
		workerSrv = tasks.SetupServer(redisClient, workerConcurrency, appLogger)
		// Start does not block or trap signals; shutdown is driven below.
		if err := workerSrv.Start(processor.Mux()); err != nil {
			return fmt.Errorf("failed to start task server: %w", err)
		}

		relay := outbox.NewProcessor(
			outbox.NewMongoStore(mongoDb),
			tasks.NewAsynqPublisher(taskClient, cfg.OutboxMaxRetries),
			outbox.ProcessorConfig{
				Interval:   cfg.OutboxInterval,
				BatchSize:  cfg.OutboxBatchSize,
				MaxRetries: cfg.OutboxMaxRetries,
			},
			appLogger,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Start(ctx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		appLogger.Info("Shutdown requested via service API")
	case runErr = <-errChan:
		appLogger.Error("Server failed, shutting down", zap.Error(runErr))
	}

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			appLogger.Error("Main API shutdown error", zap.Error(err))
		}
	}
	if workerSrv != nil {
		workerSrv.Shutdown()
	}

	wg.Wait()
	appLogger.Info("Server gracefully stopped")
	return runErr
}

// newEmailSender always includes SMTP (or its logging fallback). Redis capture and
// the mail log file are added when configured.
func newEmailSender(cfg *config.Config, rdb *redis.Client, appLogger *zap.Logger) email.Sender {
	composite := email.NewCompositeEmailSender(email.NewSMTPSender(cfg, appLogger))

	if cfg.EmailMockRedis {
		appLogger.Info("EMAIL_MOCK_REDIS enabled, storing outgoing mail in Redis")
		composite.AddSender(email.NewRedisSender(rdb, cfg.SmtpFromAddress, appLogger))
	}

	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile, cfg.SmtpFromAddress)
		if err != nil {
			appLogger.Warn("Failed to open email log file, continuing without it",
				zap.String("path", cfg.EmailLogFile), zap.Error(err))
		} else {
			composite.AddSender(fileSender)
		}
	}

	return composite
}
