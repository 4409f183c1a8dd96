package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/cache"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/config"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/consumer"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/database"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/events"
	httpapi "github.com/Kpwiin/Seniorproject2024v1-sub000/internal/http"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/logger"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// 1. config + logger
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
		Sampling:    cfg.Log.Sampling,
		Service:     "spl-relay",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	lg.Info("Starting spl-relay",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("topic_prefix", cfg.MQTT.TopicPrefix),
		zap.String("classifier", cfg.Classifier.Mode),
		zap.String("events_sink", cfg.Events.Sink),
	)

	// 2. PostgreSQL
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	if cfg.Database.Migrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			lg.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// 3. Redis (cache + event stream); the relay runs without it
	redisClient := cache.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()
	var kv cache.KV
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		lg.Warn("Redis unavailable, device cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		kv = cache.NewRedisKV(redisClient)
	}

	// 4. MQTT
	bus, err := mqtt.NewClient(&cfg.MQTT, lg)
	if err != nil {
		lg.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}

	// 5. services
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	unit := cfg.Devices.RecordDurationUnit

	devicesRepo := repository.NewPostgresDevicesRepo(db, lg)
	soundsRepo := repository.NewPostgresSoundsRepo(db, lg)
	complaintsRepo := repository.NewPostgresComplaintsRepo(db, lg)
	usersRepo := repository.NewPostgresUsersRepo(db, lg)

	sink := newSink(cfg, redisClient, kv != nil, lg)
	defer sink.Close()

	notifier := service.NewNotifier(bus, topics, cfg.MQTT.QoS, m, lg)
	deviceCache := service.NewDeviceCache(kv, cfg.Cache.DeviceTTL, m, lg)
	registry := service.NewRegistryService(devicesRepo, unit, lg)
	ingestion := service.NewIngestionService(devicesRepo, soundsRepo, newClassifier(cfg, lg), notifier, sink, deviceCache, m, lg)
	settings := service.NewSettingsService(devicesRepo, notifier, deviceCache, lg)

	api := httpapi.NewAPI(httpapi.APIOptions{
		Devices:            service.NewDeviceService(devicesRepo, deviceCache, topics, unit, lg),
		Settings:           settings,
		Ingestion:          ingestion,
		Sounds:             service.NewSoundService(devicesRepo, soundsRepo, lg),
		Complaints:         service.NewComplaintService(complaintsRepo, lg),
		MaxUploadBytes:     cfg.HTTP.MaxUploadBytes,
		RecordDurationUnit: unit,
		Logger:             lg,
	})
	handler := httpapi.NewRouter(httpapi.RouterOptions{
		API:           api,
		Authenticator: auth.NewKeyAuthenticator(devicesRepo, usersRepo, cfg.Auth.DevAPIKey, lg),
		Metrics:       m,
		Health:        healthCheck(db, redisClient, bus),
		Logger:        lg,
	})
	if cfg.Auth.DevAPIKey != "" {
		lg.Warn("Development API key enabled")
	}

	// 6. bus consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mqttConsumer := consumer.NewMQTTConsumer(bus, topics, cfg.MQTT.QoS, unit, registry, ingestion, settings, m, lg)
	consumerErr := make(chan error, 1)
	go func() { consumerErr <- mqttConsumer.Start(ctx) }()

	// 7. HTTP
	server := service.NewServer(cfg.HTTP.Addr, handler, lg)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			lg.Error("HTTP server failed", zap.Error(err))
		}
	case err := <-consumerErr:
		if err != nil {
			lg.Error("MQTT consumer failed", zap.Error(err))
		}
	}

	// graceful shutdown: consumer, HTTP, bus; deferred closes handle sink, Redis and DB
	cancel()
	mqttConsumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		lg.Error("Error during HTTP shutdown", zap.Error(err))
	}
	bus.Disconnect()

	lg.Info("Service stopped")
}

func newClassifier(cfg *config.Config, lg *zap.Logger) classifier.Classifier {
	if cfg.Classifier.Mode == "remote" {
		return classifier.NewRemoteClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout, lg)
	}
	return classifier.NewRandomClassifier(nil)
}

func newSink(cfg *config.Config, redisClient *redis.Client, redisUp bool, lg *zap.Logger) events.Sink {
	switch cfg.Events.Sink {
	case "kafka":
		return events.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	case "redis":
		if redisUp {
			return events.NewRedisStreamSink(redisClient, cfg.Events.Stream)
		}
		lg.Warn("Redis unavailable, reading events disabled", zap.String("stream", cfg.Events.Stream))
	}
	return events.NopSink{}
}

func healthCheck(db *sql.DB, redisClient *redis.Client, bus *mqtt.Client) func() map[string]string {
	return func() map[string]string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		deps := map[string]string{"postgres": "ok", "redis": "ok", "mqtt": "ok"}
		if err := db.PingContext(ctx); err != nil {
			deps["postgres"] = err.Error()
		}
		if err := cache.Ping(ctx, redisClient); err != nil {
			deps["redis"] = err.Error()
		}
		if !bus.IsConnected() {
			deps["mqtt"] = "disconnected"
		}
		return deps
	}
}
