package main

import (
	kafka_client "buffettbackend/clients/kafka"
	mongo_client "buffettbackend/clients/mongo"
	rabbitmq_client "buffettbackend/clients/rabbitmq"
	"buffettbackend/config"
	"buffettbackend/controllers"
	"buffettbackend/middleware"
	"buffettbackend/routes"
	"buffettbackend/services"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// GracefulShutdown stops the watchlist, drains the server and releases the
// broker and database connections on SIGINT/SIGTERM.
func GracefulShutdown(server *http.Server, watchlist *services.Watchlist, closers ...func()) {
	stopper := make(chan os.Signal, 1)
	// Listen for interrupt and SIGTERM signals
	signal.Notify(stopper, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stopper
		zap.L().Info("Shutting down gracefully...")

		if watchlist != nil {
			watchlist.Stop()
		}
		// Create a context with a timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Shut down the server
		if err := server.Shutdown(ctx); err != nil {
			zap.L().Error("Server shutdown failed", zap.Error(err))
		}
		for _, closeFn := range closers {
			closeFn()
		}
		sentry.Flush(2 * time.Second)
		zap.L().Info("Server exited gracefully")
	}()
}

func setupSentry(cfg *config.Config) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.SentryDSN,
		Environment:   cfg.Environment,
		EnableTracing: true,
		// Set TracesSampleRate to 1.0 to capture 100%
		// of transactions for tracing.
		TracesSampleRate: cfg.SentrySampleRate, // 1.0 by default if ENV SENTRY_SAMPLE_RATE not set
	}); err != nil {
		zap.L().Error("Sentry initialization failed: ", zap.Any("error", err.Error()))
	}
}

func setupLogger(level string) {
	zapConfig := zap.NewProductionConfig()
	atomicLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		atomicLevel = zap.NewAtomicLevelAt(parsed)
	}
	zapConfig.Level = atomicLevel
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
}

// buildFetcher picks the statement source named by STATEMENT_SOURCE.
func buildFetcher(cfg *config.Config) (services.StatementFetcher, func(), error) {
	if cfg.StatementSource != config.SourceMongo {
		zap.L().Info("Using screener statement source", zap.String("url", cfg.CompanyURL))
		return services.NewScreenerStatementSource(cfg.CompanyURL), func() {}, nil
	}

	client, err := mongo_client.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	collection := client.Database(cfg.Database).Collection(cfg.StockCollection)
	zap.L().Info("Using mongo statement source", zap.String("database", cfg.Database), zap.String("collection", cfg.StockCollection))
	return services.NewMongoStatementSource(collection), func() { mongo_client.Disconnect(context.Background()) }, nil
}

// buildPublisher connects the configured event backend. A broker that cannot
// be reached disables events rather than the API.
func buildPublisher(cfg *config.Config) (services.EventPublisher, func()) {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		producer, err := kafka_client.NewProducer(kafka_client.Config{
			BootstrapServers:  cfg.KafkaBootstrapServers,
			Topic:             cfg.KafkaTopic,
			NumPartitions:     cfg.KafkaTopicPartitions,
			ReplicationFactor: cfg.KafkaReplication,
		})
		if err != nil {
			sentry.CaptureException(err)
			zap.L().Error("Kafka unavailable, analysis events disabled", zap.Error(err))
			return nil, func() {}
		}
		return producer, producer.Close
	case config.EventsRabbitMQ:
		publisher, err := rabbitmq_client.NewPublisher(rabbitmq_client.Config{
			Server:   cfg.RabbitMQServer,
			Port:     cfg.RabbitMQPort,
			User:     cfg.RabbitMQUser,
			Password: cfg.RabbitMQPass,
			Queue:    cfg.RabbitMQQueue,
		})
		if err != nil {
			sentry.CaptureException(err)
			zap.L().Error("RabbitMQ unavailable, analysis events disabled", zap.Error(err))
			return nil, func() {}
		}
		return publisher, publisher.Close
	default:
		return nil, func() {}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogger(cfg.LogLevel)
	defer zap.L().Sync()

	setupSentry(cfg)

	fetcher, closeFetcher, err := buildFetcher(cfg)
	if err != nil {
		zap.L().Fatal("Failed to set up statement source", zap.Error(err))
	}
	publisher, closePublisher := buildPublisher(cfg)

	engine := services.NewRatioEngine(fetcher, cfg.ParallelRules)
	controllers.AnalysisController = controllers.NewAnalysisController(engine, publisher, cfg.CloudinaryURL)
	controllers.SearchController = controllers.NewSearchController(cfg.CompanyURL)

	router := gin.New()
	router.Use(middleware.Chain()...)
	router.Use(CORSMiddleware())

	routes.Routes(router)

	var watchlist *services.Watchlist
	if len(cfg.Watchlist) > 0 {
		zap.L().Info("Starting watchlist", zap.Strings("symbols", cfg.Watchlist), zap.Duration("interval", cfg.WatchlistInterval))
		watchlist = services.StartWatchlist(engine, publisher, cfg.Watchlist, cfg.WatchlistInterval)
	}

	// Create a server instance using gin engine as handler
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	GracefulShutdown(server, watchlist, closePublisher, closeFetcher)

	// Start the server
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Error starting server: %v", err)
	}
}
