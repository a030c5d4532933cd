// Package main runs the background job worker (invoice emails and their archive copies).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vighneshparab/SkyWings-sub000/config"
	"github.com/vighneshparab/SkyWings-sub000/internal/emaillogs"
	"github.com/vighneshparab/SkyWings-sub000/internal/notify"
	"github.com/vighneshparab/SkyWings-sub000/internal/worker"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
	"github.com/vighneshparab/SkyWings-sub000/pkg/queue"
	"github.com/vighneshparab/SkyWings-sub000/pkg/redis"
	"github.com/vighneshparab/SkyWings-sub000/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var archiver worker.InvoiceArchiver
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			InvoicesBucket:       cfg.AWS.InvoicesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		archiver = s3Client
	} else {
		logger.Warn("AWS_REGION not set, invoices are not archived")
	}

	mailer := notify.NewMailer(notify.Config{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SMTPHost:    cfg.Email.SMTPHost,
		SMTPPort:    cfg.Email.SMTPPort,
		SMTPUser:    cfg.Email.SMTPUser,
		SMTPPass:    cfg.Email.SMTPPass,
		APIKey:      cfg.Email.APIKey,
	}, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewInvoiceEmailProcessor(
		jobQueue,
		rdb.Client,
		notify.NewSender(mailer, logger),
		emaillogs.NewRepository(pool),
		archiver,
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
