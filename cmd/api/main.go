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

	"github.com/redis/go-redis/v9"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	appadvisory "github.com/bryanwahyu/regtech-advisor/internal/application/advisory"
	appai "github.com/bryanwahyu/regtech-advisor/internal/application/ai"
	appaudit "github.com/bryanwahyu/regtech-advisor/internal/application/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/application/catalog"
	"github.com/bryanwahyu/regtech-advisor/internal/application/monitor"
	"github.com/bryanwahyu/regtech-advisor/internal/application/rules"
	"github.com/bryanwahyu/regtech-advisor/internal/config"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/alert"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/ai/offline"
	openaiclient "github.com/bryanwahyu/regtech-advisor/internal/infra/ai/openai"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/auditlog"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/httpserver"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/notify"
	minioStore "github.com/bryanwahyu/regtech-advisor/internal/infra/storage"
	"github.com/bryanwahyu/regtech-advisor/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := application.SystemClock{}

	// connect database
	conn, dialect, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	catalogRepo := sqlstore.NewCatalogRepository(conn, dialect)
	if cfg.Database.Seed != "" {
		if err := seed(ctx, catalogRepo, cfg.Database.Seed, logger); err != nil {
			return err
		}
	}

	health := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: conn},
	}

	// init redis
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		health["redis"] = &middleware.RedisHealthChecker{Client: rdb}
	}

	var store audit.Store
	switch cfg.Audit.Backend {
	case "redis":
		store = auditlog.NewRedisStore(rdb, cfg.Audit.Prefix, cfg.Audit.TTL)
	case "sql":
		store = sqlstore.NewAuditRepository(conn, dialect)
	default:
		store = auditlog.NewMemoryStore()
	}

	// init minio, optional
	exporter := &rules.Exporter{Clock: clock}
	if cfg.Minio.Endpoint != "" {
		s3, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		exporter.Archive = s3
		health["storage"] = middleware.CheckerFunc(s3.Ping)
	}

	// monitor with otel counters and alert fan-out; /metrics reads them back
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if cfg.Monitor.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Monitor.WebhookURL))
	}
	mon, err := monitor.New(monitor.Options{
		Notifier:  alert.Notifier(notifiers),
		Logger:    logger.Named("monitor"),
		Clock:     clock,
		Meter:     provider.Meter("regtech-advisor"),
		Retention: cfg.Monitor.Retention,
		MaxRecent: cfg.Monitor.MaxRecent,
	})
	if err != nil {
		return fmt.Errorf("monitor init: %w", err)
	}

	loader := rules.NewLoader(catalogRepo)
	exporter.Loader = loader

	svc := &appadvisory.Service{
		Rules:   loader,
		AI:      appai.NewService(modelClient(cfg, logger), cfg.OpenAI.Timeout, logger.Named("ai")),
		Audit:   appaudit.NewLogger(store, clock),
		Monitor: mon,
		Results: sqlstore.NewAnalystRepository(conn, dialect),
		Clock:   clock,
		Logger:  logger.Named("advisory"),
	}

	keys := make(map[string]middleware.Principal, len(cfg.Auth.Keys))
	for _, k := range cfg.Auth.Keys {
		keys[k.Key] = middleware.Principal{Tenant: k.Tenant, UserID: k.User}
	}
	if len(keys) == 0 {
		logger.Warn("no API keys configured; every tenant route will answer 401")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: httpserver.NewRouter(httpserver.Deps{
			Advisory:        svc,
			Rules:           loader,
			Exporter:        exporter,
			Validator:       &rules.Validator{Loader: loader},
			Monitor:         mon,
			Keys:            keys,
			Limiter:         limiter,
			Health:          health,
			MetricsReader:   reader,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			MaxDocumentSize: cfg.Server.MaxDocumentSize,
			Logger:          logger.Named("http"),
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", addr), zap.String("database", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return mon.Run(gctx) })
	g.Go(func() error {
		// graceful shutdown
		<-gctx.Done()
		logger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// modelClient picks the OpenAI client when a key is configured and falls
// back to the offline keyword analyzer otherwise.
func modelClient(cfg *config.Config, logger *zap.Logger) ai.Client {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("openai.apiKey not set; using the offline analyzer")
		return offline.Analyzer{}
	}
	oc := goopenai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oc.BaseURL = cfg.OpenAI.BaseURL
	}
	return openaiclient.NewClientWithConfig(oc, cfg.OpenAI.Model)
}

func seed(ctx context.Context, w *sqlstore.CatalogRepository, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	if _, err := (&catalog.Seeder{Writer: w, Logger: logger.Named("seed")}).Seed(ctx, f); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}
