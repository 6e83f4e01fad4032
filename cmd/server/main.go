package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storefront-service/internal/cache"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/kafka"
	"storefront-service/internal/middleware"
	"storefront-service/internal/rabbit"
	"storefront-service/internal/repository"
	"storefront-service/internal/repository/memory"
	"storefront-service/internal/router"
	"storefront-service/internal/service"
)

const serviceName = "storefront-service"

// stores agrupa los repositorios del driver elegido.
type stores struct {
	users      service.UserRepository
	categories service.CategoryRepository
	products   service.ProductRepository
	orders     service.OrderRepository
	tx         service.Transactor
	close      func(context.Context)
}

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := middleware.InitTracing(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// Persistencia
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.close(context.Background())

	// Cache de productos (opcional)
	var productCache service.ProductCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		productCache = cache.NewProductCache(rdb, cfg.CacheTTL)
		logger.Info("Product cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	// Eventos
	var (
		publisher  events.Publisher = events.Nop{}
		rabbitConn *amqp091.Connection
	)
	switch cfg.EventsDriver {
	case "rabbit":
		rabbitConn, err = amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitConn.Close()
		ch, err := rabbitConn.Channel()
		if err != nil {
			logger.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
		}
		pub, err := rabbit.NewPublisher(ch)
		if err != nil {
			logger.Fatal("Failed to set up RabbitMQ publisher", zap.Error(err))
		}
		publisher = events.NewBreakerPublisher("rabbit", pub, logger)
	case "kafka":
		producer, err := kafka.InitProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		publisher = events.NewBreakerPublisher("kafka", kafka.NewPublisher(producer, logger), logger)
	case "none", "":
	default:
		logger.Fatal("Unknown EVENTS_DRIVER", zap.String("driver", cfg.EventsDriver))
	}

	// Servicios
	authService := service.NewAuthService(st.users, cfg.JWTSecret, cfg.JWTTTL, logger)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:    st.orders,
		Products:  st.products,
		Users:     st.users,
		Tx:        st.tx,
		Cache:     productCache,
		Publisher: publisher,
		Logger:    logger,
	})

	// Consumer de pagos capturados (sólo con RabbitMQ)
	if rabbitConn != nil {
		ch, err := rabbitConn.Channel()
		if err != nil {
			logger.Fatal("Failed to open RabbitMQ consumer channel", zap.Error(err))
		}
		consumer := rabbit.NewPaymentCapturedConsumer(orderService, logger)
		if err := rabbit.SetupConsumers(ctx, ch, consumer, logger); err != nil {
			logger.Fatal("Failed to set up RabbitMQ consumers", zap.Error(err))
		}
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Services{
		Auth:       authService,
		Users:      service.NewUserService(st.users),
		Products:   service.NewProductService(st.products, st.categories, productCache, logger),
		Categories: service.NewCategoryService(st.categories),
		Orders:     orderService,
	}, router.Options{
		ServiceName:    serviceName,
		CORSOrigins:    cfg.CORSOrigins,
		PayPalClientID: cfg.PayPalClientID,
		SecureCookies:  !cfg.IsDevelopment(),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	logger.Info("Storefront service started",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("events", cfg.EventsDriver),
	)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		m := memory.NewStore()
		return &stores{
			users:      m.Users(),
			categories: m.Categories(),
			products:   m.Products(),
			orders:     m.Orders(),
			tx:         m,
			close:      func(context.Context) {},
		}, nil
	case "mongo", "":
		db, err := repository.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB", zap.String("db", cfg.MongoDBName))
		return &stores{
			users:      repository.NewMongoUserRepository(db),
			categories: repository.NewMongoCategoryRepository(db),
			products:   repository.NewMongoProductRepository(db),
			orders:     repository.NewMongoOrderRepository(db),
			tx:         repository.NewMongoTransactor(db),
			close: func(ctx context.Context) {
				if err := db.Client().Disconnect(ctx); err != nil {
					logger.Error("Mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil
	default:
		return nil, errors.New("unknown STORE_DRIVER: " + cfg.StoreDriver)
	}
}
