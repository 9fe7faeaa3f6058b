package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ButyrinIA/blog/internal/auth"
	"github.com/ButyrinIA/blog/internal/blog"
	"github.com/ButyrinIA/blog/internal/config"
	"github.com/ButyrinIA/blog/internal/events"
	"github.com/ButyrinIA/blog/internal/server"
	"github.com/ButyrinIA/blog/internal/storage"
	"github.com/ButyrinIA/blog/internal/storage/memory"
	"github.com/ButyrinIA/blog/internal/storage/postgres"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	storageType := flag.String("storage", "memory", "тип хранилища: memory или postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	zapLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Не удалось создать логгер: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := initTracer(ctx, cfg)
		if err != nil {
			logger.Errorw("failed to init tracer", "error", err)
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	var store storage.Storage
	switch *storageType {
	case "postgres":
		logger.Infow("Инициализация хранилища PostgreSQL")
		store, err = postgres.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			logger.Fatalw("Не удалось инициализировать PostgreSQL", "error", err)
		}
	case "memory":
		logger.Infow("Инициализация хранилища Memory")
		store = memory.New()
	default:
		logger.Fatalw("Неизвестный тип хранилища", "storage", *storageType)
	}
	defer store.Close()

	hub := events.NewHub(0)
	publishers := events.Multi{hub}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.Telemetry.ServiceName))
		if err != nil {
			logger.Fatalw("Не удалось подключиться к NATS", "url", cfg.NATS.URL, "error", err)
		}
		defer nc.Close()
		publishers = append(publishers, events.NewNatsPublisher(nc, cfg.NATS.SubjectPrefix))
		logger.Infow("Подключено к NATS", "url", cfg.NATS.URL)
	}

	authenticator := auth.New(auth.Options{
		Secret:             cfg.Auth.JWTSecret,
		AllowTrustedHeader: cfg.Auth.AllowTrustedHeader,
		UserHeader:         cfg.Auth.TrustedHeader,
		NameHeader:         cfg.Auth.TrustedNameHeader,
	})
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowTrustedHeader {
		logger.Warnw("no JWT secret and trusted header disabled: every write will be rejected")
	}

	svc := blog.NewService(store, publishers, logger)
	srv := server.New(cfg, svc, authenticator, hub, logger)

	logger.Infow("Запуск сервера", "port", cfg.Server.Port, "storage", *storageType)
	if err := srv.Run(ctx); err != nil {
		logger.Errorw("Сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
	logger.Infow("Сервер остановлен")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.Telemetry.ServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}
