package main

import (
	// Go Internal Packages
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Local Packages
	config "payflow/config"
	errors "payflow/errors"
	gateways "payflow/gateways"
	idempotency "payflow/idempotency"
	kafka "payflow/kafka"
	metrics "payflow/metrics"
	models "payflow/models"
	mongodb "payflow/repositories/mongodb"
	redis "payflow/repositories/redis"
	registry "payflow/registry"
	retry "payflow/retry"
	fraud "payflow/services/fraud"
	payments "payflow/services/payments"
	splits "payflow/services/splits"

	// External Packages
	"github.com/alecthomas/kingpin/v2"
	_ "github.com/jsternberg/zap-logfmt"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// LoadConfig loads the default configuration and overrides it with the config file
// specified by the path defined in the config flag
func LoadConfig() *koanf.Koanf {
	configPathMsg := "Path to the application config file"
	configPath := kingpin.Flag("config", configPathMsg).Short('c').Default("config.yml").String()

	kingpin.Parse()
	k := koanf.New(".")
	_ = k.Load(rawbytes.Provider(config.DefaultConfig), yaml.Parser())
	if *configPath != "" {
		_ = k.Load(file.Provider(*configPath), yaml.Parser())
	}
	return k
}

// newAdapter builds the concrete adapter for a configured gateway type.
func newAdapter(cfg models.GatewayConfig, logger *zap.Logger) (gateways.Adapter, error) {
	switch cfg.Type {
	case "stripe":
		return gateways.NewStripeAdapter(cfg, logger), nil
	case "paystack":
		return gateways.NewPaystackAdapter(cfg, logger), nil
	case "flutterwave":
		return gateways.NewFlutterwaveAdapter(cfg, logger), nil
	}
	return nil, errors.E(errors.Config, "unknown gateway type "+cfg.Type, nil)
}

func main() {
	k := LoadConfig()
	appKonf := config.Config{}

	// Unmarshalling config into struct
	err := k.Unmarshal("", &appKonf)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Validate the config loaded
	if err = appKonf.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !appKonf.IsProdMode {
		k.Print()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "logfmt"
	_ = cfg.Level.UnmarshalText([]byte(k.String("logger.level")))
	cfg.InitialFields = make(map[string]any)
	cfg.InitialFields["host"], _ = os.Hostname()
	cfg.InitialFields["service"] = appKonf.Application
	cfg.OutputPaths = []string{"stdout"}
	logger, _ := cfg.Build()
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mongo Connection
	mongoClient, err := mongodb.Connect(ctx, appKonf.Mongo.URI)
	if err != nil {
		logger.Fatal("cannot create mongo client", zap.Error(err))
	}

	// Redis Connection
	redisClient, err := redis.Connect(ctx, appKonf.Redis.URI, appKonf.Redis.Password)
	if err != nil {
		logger.Fatal("cannot create redis client", zap.Error(err))
	}

	txStore := mongodb.NewTransactionStore(mongoClient, appKonf.Mongo.Database)
	if err := txStore.EnsureIndexes(ctx); err != nil {
		logger.Fatal("cannot create transaction indexes", zap.Error(err))
	}

	healthStore := redis.NewHealthStore(redisClient, logger)
	reg := registry.New(healthStore, logger)
	for _, gwConf := range appKonf.Gateways {
		adapter, err := newAdapter(gwConf, logger)
		if err != nil {
			logger.Fatal("cannot build gateway adapter", zap.Error(err))
		}
		if err := reg.Register(adapter); err != nil {
			logger.Fatal("cannot register gateway adapter", zap.Error(err))
		}
	}
	coordinator := registry.NewCoordinator(reg, appKonf.FallbackChains(), logger)

	retrier := retry.NewExecutor(retry.Policy{
		MaxRetries:     appKonf.Retry.MaxRetries,
		BaseDelay:      time.Duration(appKonf.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(appKonf.Retry.MaxDelayMS) * time.Millisecond,
		Multiplier:     appKonf.Retry.BackoffMultiplier,
		AttemptTimeout: time.Duration(appKonf.Retry.AttemptTimeoutMS) * time.Millisecond,
	}, logger)

	guard := idempotency.NewGuard(
		redis.NewKVStore(redisClient),
		time.Duration(appKonf.Idempotency.TTLHours)*time.Hour,
		logger,
	)

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	kafkaMetrics := kprom.NewMetrics("payflow")
	splitProducer, err := kafka.NewProducer(appKonf.Kafka.Brokers, appKonf.Kafka.SplitsTopic, kafkaMetrics, logger)
	if err != nil {
		logger.Fatal("cannot create split producer", zap.Error(err))
	}
	defer splitProducer.Close()

	orchestrator := payments.NewOrchestrator(txStore, reg, coordinator, retrier, guard, recorder, logger).
		WithSplitEnqueuer(splits.NewEnqueuer(logger, splitProducer))
	if appKonf.Fraud.Enabled {
		orchestrator.WithFraudChecker(fraud.NewChecker(
			appKonf.Fraud.ReviewThreshold, appKonf.Fraud.DeclineThreshold, logger))
	}

	dlq := redis.NewDeadLetterQueue(redisClient, logger)
	splitConsumer, err := kafka.NewConsumer(&models.ConsumerConfig{
		Brokers:        appKonf.Kafka.Brokers,
		Name:           appKonf.Kafka.ConsumerName + "-splits",
		Topic:          appKonf.Kafka.SplitsTopic,
		RecordsPerPoll: appKonf.Kafka.RecordsPerPoll,
	}, splits.NewProcessor(logger, txStore), dlq, kafkaMetrics, logger)
	if err != nil {
		logger.Fatal("cannot create split consumer", zap.Error(err))
	}

	statusConsumer, err := kafka.NewConsumer(&models.ConsumerConfig{
		Brokers:        appKonf.Kafka.Brokers,
		Name:           appKonf.Kafka.ConsumerName + "-status",
		Topic:          appKonf.Kafka.StatusTopic,
		RecordsPerPoll: appKonf.Kafka.RecordsPerPoll,
	}, payments.NewStatusEventProcessor(logger, orchestrator), nil, kafkaMetrics, logger)
	if err != nil {
		logger.Fatal("cannot create status consumer", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() { errCh <- splitConsumer.Poll(ctx) }()
	go func() { errCh <- statusConsumer.Poll(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
