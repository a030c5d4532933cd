// Package main runs the course enrollment HTTP server with WebSocket push and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vighneshparab/SkyWings-sub000/config"
	"github.com/vighneshparab/SkyWings-sub000/internal/auth"
	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/emaillogs"
	"github.com/vighneshparab/SkyWings-sub000/internal/enrollment"
	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/notify"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
	"github.com/vighneshparab/SkyWings-sub000/internal/realtime"
	"github.com/vighneshparab/SkyWings-sub000/internal/reports"
	"github.com/vighneshparab/SkyWings-sub000/internal/worker"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
	"github.com/vighneshparab/SkyWings-sub000/pkg/queue"
	"github.com/vighneshparab/SkyWings-sub000/pkg/redis"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			InvoicesBucket:       cfg.AWS.InvoicesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, invoices are not archived", zap.Error(err))
			s3Client = nil
		}
	}

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is empty, checkout calls will be rejected")
	}
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	hub := realtime.NewHub(logger, realtime.NewRedisPubSub(rdb.Client, logger))
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Catalog
	courseRepo := courses.NewRepository(pool)
	courseHandler := courses.NewHandler(courseRepo, cfg.Enrollment.Currency, logger)

	// Enrollment and payment confirmation
	enrollStore := enrollment.NewPostgresStore(pool)
	enrollService := enrollment.NewService(enrollStore, gateway, notify.NewDispatcher(jobQueue, logger), hub, enrollment.Options{
		FrontendURL: cfg.Enrollment.FrontendURL,
		CheckoutTTL: cfg.Enrollment.CheckoutTTL,
	}, logger)
	enrollHandler := enrollment.NewHandler(enrollService, logger)

	// Payments (invoice download)
	paymentRepo := payments.NewRepository(pool)
	var linker payments.InvoiceLinker
	if s3Client != nil {
		linker = s3Client
	}
	paymentHandler := payments.NewHandler(paymentRepo, linker, logger)

	// Reports and email logs
	reportHandler := reports.NewHandler(reports.NewRepository(pool), logger)
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	tokenUser := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Catalog reads are public
	router.GET("/course", courseHandler.List)
	router.GET("/course/:id", courseHandler.Get)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Courses
		api.POST("/course", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
		api.PATCH("/course/:id", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin), courseHandler.Update)
		api.GET("/course/:id/roster", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin), reportHandler.Roster)

		// Enrollment
		api.POST("/course/:id/enroll", middleware.RequireRole(models.RoleStudent), enrollHandler.Enroll)
		api.POST("/course/payment-success", enrollHandler.PaymentSuccess)
		api.GET("/me/enrollments", reportHandler.MyEnrollments)
		api.GET("/payments/:id/invoice", paymentHandler.InvoiceLink)

		// Admin
		admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		admin.GET("/enrollments", reportHandler.Enrollments)
		admin.GET("/courses/summary", reportHandler.CourseSummaries)
		admin.GET("/emails", emailLogsHandler.List)
	}

	// WebSocket (token in query; browsers cannot send Authorization on upgrade)
	router.GET("/ws", realtime.ServeWs(hub, tokenUser, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (invoice emails) when not deployed separately
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.Embedded {
		var archiver worker.InvoiceArchiver
		if s3Client != nil {
			archiver = s3Client
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
		processor := worker.NewInvoiceEmailProcessor(jobQueue, rdb.Client, notify.NewSender(mailer, logger), emailLogsRepo, archiver, logger)
		go processor.Run(workerCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
