package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"

	"github.com/rl1809/campus-market/internal/adapter/handler"
	"github.com/rl1809/campus-market/internal/adapter/messaging"
	"github.com/rl1809/campus-market/internal/adapter/storage"
	"github.com/rl1809/campus-market/internal/config"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
	"github.com/rl1809/campus-market/internal/port"
)

const publishTimeout = 5 * time.Second

type repositories interface {
	port.UserRepository
	port.ItemRepository
	port.OrderRepository
	port.ReviewRepository
}

type publisher interface {
	port.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	repos, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StorageDriver, err)
	}
	defer closeStore()

	// Initialize Redis (optional)
	var cache port.CacheRepository
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		cache = storage.NewRedisAdapter(rdb)
		log.Println("connected to redis, idempotency keys enabled")
	}

	// Initialize event publisher
	var events publisher = messaging.LogPublisher{}
	if brokers := messaging.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		events = messaging.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		log.Printf("publishing order events to kafka topic %s", cfg.KafkaTopic)
	}

	// Initialize services
	otp := service.NewOTPManager(repos, cfg.OTPCost)
	orderService := service.NewOrderService(repos, repos, repos, otp, cfg.EventQueueSize)
	services := handler.Services{
		Carts:    service.NewCartService(repos, repos),
		Orders:   orderService,
		Catalog:  service.NewCatalogService(repos, repos, repos),
		Reviews:  service.NewReviewService(repos, repos),
		Profiles: service.NewProfileService(repos),
	}
	verifier := handler.NewTokenVerifier([]byte(cfg.JWTSecret), service.NewIdentityService(repos, cfg.CommunityEmailDomain))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := handler.NewMetrics(registry)

	// Start event workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.EventWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, orderService.GetEventQueue(), events, metrics)
		}(i)
	}
	log.Printf("started %d event workers", cfg.EventWorkers)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.AuthInterceptor(verifier)))
	handler.RegisterMarketplaceServer(grpcServer, handler.NewGRPCHandler(services))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server: CORS -> logging -> rate limit -> security headers -> timeout -> router
	httpHandler := handler.NewHTTPHandler(services, verifier, metrics, cache)
	var root http.Handler = http.TimeoutHandler(httpHandler.Routes(), cfg.RequestTimeout, `{"error":"request timed out"}`)
	root = handler.SecurityHeaders(root)
	root = handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Limit(root)
	root = handler.Logging(root)
	root = cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
	}).Handler(root)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Stop gRPC server
	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	// Close event queue and wait for workers to flush it
	orderService.Close()
	wg.Wait()
	log.Println("workers stopped")

	// Close connections
	if err := events.Close(); err != nil {
		log.Printf("failed to close event publisher: %v", err)
	}
	if rdb != nil {
		rdb.Close()
	}
	log.Println("connections closed")
}

func openStore(ctx context.Context, cfg config.Config) (repositories, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("connected to mysql")
		return adapter, func() { db.Close() }, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			client.Disconnect(dctx)
		}
		if err := client.Ping(ctx, nil); err != nil {
			disconnect()
			return nil, nil, err
		}
		adapter := storage.NewMongoAdapter(client.Database(cfg.MongoDB))
		if err := adapter.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, err
		}
		log.Println("connected to mongodb")
		return adapter, disconnect, nil

	case config.DriverMemory:
		log.Println("using in-memory store; data is lost on exit")
		return storage.NewMemoryAdapter(), func() {}, nil
	}
	return nil, nil, errors.New("unknown storage driver " + cfg.StorageDriver)
}

func workerLoop(id int, queue <-chan domain.OrderEvent, events port.EventPublisher, metrics *handler.Metrics) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := events.Publish(ctx, event); err != nil {
			log.Printf("worker %d: failed to publish %s for order %s: %v", id, event.Type, event.OrderID, err)
			metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		} else {
			metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
		}

		cancel()
	}
}
