package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"crm-service/internal/auth"
	"crm-service/internal/config"
	"crm-service/internal/counselor"
	"crm-service/internal/db"
	"crm-service/internal/enquiry"
	"crm-service/internal/health"
	"crm-service/internal/httputil"
	"crm-service/internal/logger"
	"crm-service/internal/messaging"
	"crm-service/internal/metrics"
	"crm-service/internal/middleware"
	"crm-service/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type App struct {
	config        *config.Config
	router        chi.Router
	server        *http.Server
	logger        *slog.Logger
	database      *bun.DB
	producer      *messaging.Producer
	meterProvider *sdkmetric.MeterProvider
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	ctx := context.Background()

	meterProvider, err := telemetry.InitMeterProvider(ctx, ServiceName, Version, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize OTel metrics", "error", err)
	}
	app.meterProvider = meterProvider

	appMetrics, err := metrics.New(ServiceName)
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	app.database = db.New(cfg.Database)
	if err := db.Migrate(ctx, app.database); err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.RealIP)
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Status route (no auth required)
	app.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"message":   "CRM API is running",
			"status":    "success",
			"timestamp": time.Now().UTC(),
		})
	})

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler()
	healthHandler.RegisterRoutes(app.router)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Minute)

	// Auth setup
	counselorRepo := counselor.NewRepository(app.database, appMetrics)
	authService := auth.NewService(counselorRepo, tokens)
	authHandler := auth.NewHandler(authService, slogLogger, appMetrics)
	authHandler.RegisterRoutes(app.router)

	// NATS producer setup (optional - the app runs without events)
	natsProducer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize NATS producer", "error", err)
		natsProducer = nil
	} else {
		slogLogger.Info("NATS producer initialized successfully")
	}
	app.producer = natsProducer

	// Enquiry endpoints
	enquiryRepo := enquiry.NewRepository(app.database, appMetrics)
	var producer enquiry.Producer
	if natsProducer != nil {
		producer = natsProducer
	}
	enquiryService := enquiry.NewService(enquiryRepo, producer, slogLogger)
	enquiryHandler := enquiry.NewHandler(enquiryService, slogLogger, appMetrics)

	enquiryHandler.RegisterPublicRoutes(app.router)

	app.router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, slogLogger))
		enquiryHandler.RegisterProtectedRoutes(r)
	})

	slogLogger.Info("application initialized successfully")

	return app
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("failed to close NATS producer", "error", err)
		}
	}
	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shut down meter provider", "error", err)
		}
	}
	defer db.Close(a.database)

	return a.server.Shutdown(ctx)
}
