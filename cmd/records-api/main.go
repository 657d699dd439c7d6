package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-records-api/api/swagger"
	"github.com/noah-isme/campus-records-api/internal/handler"
	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/migrations"
	"github.com/noah-isme/campus-records-api/pkg/config"
	"github.com/noah-isme/campus-records-api/pkg/database"
	"github.com/noah-isme/campus-records-api/pkg/events"
	"github.com/noah-isme/campus-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-records-api/pkg/observability"
	"github.com/noah-isme/campus-records-api/pkg/ratelimit"
)

// @title Campus Records API
// @version 1.0.0
// @description Enrollment, grading and authentication for the campus records desktop client
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accountsDB, err := database.NewPostgres(ctx, cfg.AccountsDB)
	if err != nil {
		return fmt.Errorf("connect accounts db: %w", err)
	}
	defer accountsDB.Close()

	academicDB, err := database.NewPostgres(ctx, cfg.AcademicDB)
	if err != nil {
		return fmt.Errorf("connect academic db: %w", err)
	}
	defer academicDB.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, accountsDB, migrations.FS, migrations.AccountsDir); err != nil {
			return fmt.Errorf("migrate accounts db: %w", err)
		}
		if err := database.Migrate(ctx, academicDB, migrations.FS, migrations.AcademicDir); err != nil {
			return fmt.Errorf("migrate academic db: %w", err)
		}
	}

	publisher, closePublisher := newPublisher(cfg.Events, logr)
	defer closePublisher()

	validate := validator.New()
	metrics := service.NewMetricsService()

	accountRepo := repository.NewAccountRepository(accountsDB)
	sectionRepo := repository.NewSectionRepository(academicDB)
	enrollmentRepo := repository.NewEnrollmentRepository(academicDB)
	componentRepo := repository.NewGradeComponentRepository(academicDB)

	hasher := service.NewBcryptHasher(0)
	lockout := service.NewLockoutService(accountRepo, cfg.Lockout.MaxAttempts, publisher, metrics, logr)
	authSvc := service.NewAuthService(accountRepo, lockout, hasher, validate, metrics, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	accountSvc := service.NewAccountService(accountRepo, lockout, hasher, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, publisher, validate, metrics, logr)
	gradeSvc := service.NewGradeService(componentRepo, enrollmentSvc, validate, metrics, logr)
	transcriptSvc := service.NewTranscriptService(enrollmentRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	routes := handler.Router{
		Auth:        handler.NewAuthHandler(authSvc),
		Accounts:    handler.NewAccountHandler(accountSvc),
		Sections:    handler.NewSectionHandler(sectionSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc, enrollmentSvc),
		Transcripts: handler.NewTranscriptHandler(transcriptSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"accounts_db": accountsDB,
			"academic_db": academicDB,
		}),
		Tokens:   authSvc,
		AuditLog: accountRepo,
		Logger:   logr,
	}
	if cfg.RateLimit.Enabled {
		client, err := ratelimit.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("login rate limiting disabled: redis unavailable", zap.Error(err))
		} else {
			defer client.Close()
			routes.LoginLimiter = ratelimit.NewLimiter(client, "login", cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}
	routes.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher returns the broker-backed async publisher when events are
// enabled, falling back to a no-op publisher when the broker is unreachable.
func newPublisher(cfg config.EventsConfig, logr *zap.Logger) (events.Publisher, func()) {
	if !cfg.Enabled {
		return events.Nop{}, func() {}
	}
	broker, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.URL, Exchange: cfg.Exchange}, logr)
	if err != nil {
		logr.Warn("event publishing disabled: broker unavailable", zap.Error(err))
		return events.Nop{}, func() {}
	}
	async := events.NewAsync(broker, events.AsyncConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: time.Second,
	}, logr)
	// Workers outlive the signal context so Stop can drain pending events.
	async.Start(context.Background())
	return async, func() {
		async.Stop()
		if err := broker.Close(); err != nil {
			logr.Warn("failed to close event broker", zap.Error(err))
		}
	}
}
