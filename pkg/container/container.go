package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"rentflow-backend/internal/config"
	infraCache "rentflow-backend/internal/infrastructure/cache"
	"rentflow-backend/internal/infrastructure/database"
	"rentflow-backend/internal/infrastructure/storage"
	"rentflow-backend/pkg/jwt"

	// Agreement domain
	agreementRepo "rentflow-backend/internal/domains/agreement/repository"

	// Payment domain
	"rentflow-backend/internal/domains/payment/gateway/esewa"
	paymentHandler "rentflow-backend/internal/domains/payment/handler"
	paymentRepo "rentflow-backend/internal/domains/payment/repository"
	paymentService "rentflow-backend/internal/domains/payment/service"

	// Notification domain
	notificationHandler "rentflow-backend/internal/domains/notification/handler"
	notificationRepo "rentflow-backend/internal/domains/notification/repository"
	notificationService "rentflow-backend/internal/domains/notification/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every long-lived dependency of the API and the worker.
// Initialization order: config, infrastructure, repositories, services, handlers.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	AsynqClient *asynq.Client
	Storage     *storage.MinIOStorage
	Esewa       *esewa.Client
	JWTManager  *jwt.Manager

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	AgreementRepo    agreementRepo.AgreementRepository
	PaymentRepo      paymentRepo.PaymentRepository
	TxManager        paymentRepo.TransactionManager
	NotificationRepo notificationRepo.NotificationRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	PaymentService      paymentService.PaymentService
	StatementService    paymentService.StatementService
	NotificationService notificationService.NotificationService

	// ========================================
	// HANDLER LAYER
	// ========================================
	PaymentHandler      *paymentHandler.PaymentHandler
	NotificationHandler *notificationHandler.NotificationHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the whole dependency graph
func NewContainer() (*Container, error) {
	log.Println("Initializing DI Container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("Config loaded (Environment: %s)", cfg.App.Environment)

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("Database connected")

	// ========================================
	// STEP 3: INITIALIZE REDIS + QUEUE
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// only the initiation lock and the queue depend on it
		log.Printf("Redis connection failed (non-critical): %v", err)
	} else {
		log.Println("Redis connected")
	}

	c.AsynqClient = asynq.NewClient(c.RedisOpt())

	// ========================================
	// STEP 4: INITIALIZE EXTERNAL SERVICES
	// ========================================
	c.Esewa, err = esewa.NewClient(esewa.Config{
		ProductCode: cfg.Esewa.ProductCode,
		SecretKey:   cfg.Esewa.SecretKey,
		FormURL:     cfg.Esewa.FormURL,
		StatusURL:   cfg.Esewa.StatusURL,
		SuccessURL:  cfg.Esewa.SuccessURL,
		FailureURL:  cfg.Esewa.FailureURL,
		Timeout:     cfg.Esewa.StatusTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init eSewa client: %w", err)
	}

	c.Storage, err = storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	log.Println("MinIO connected")

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// ========================================
	// STEP 5: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Println("DI Container initialized successfully")
	return c, nil
}

// RedisOpt is shared by the asynq client, server and scheduler
func (c *Container) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// StaleTimeout is the age after which a Pending payment is checked with eSewa
func (c *Container) StaleTimeout() time.Duration {
	return time.Duration(c.Config.Jobs.PaymentTimeoutMinutes) * time.Minute
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.AgreementRepo = agreementRepo.NewAgreementRepository(pool)
	c.PaymentRepo = paymentRepo.NewPaymentRepository(pool)
	c.TxManager = paymentRepo.NewPostgresTransactionManager(pool)
	c.NotificationRepo = notificationRepo.NewNotificationRepository(pool)
}

func (c *Container) initServices() {
	c.PaymentService = paymentService.NewPaymentService(
		c.PaymentRepo,
		c.AgreementRepo,
		c.TxManager,
		c.Esewa,
		c.Redis, // initiation lock
		c.AsynqClient,
	)

	c.StatementService = paymentService.NewStatementService(
		c.PaymentRepo,
		c.AgreementRepo,
		c.Storage,
		c.AsynqClient,
		c.Config.Jobs.StatementURLExpiry,
	)

	c.NotificationService = notificationService.NewNotificationService(c.NotificationRepo)
}

func (c *Container) initHandlers() {
	c.PaymentHandler = paymentHandler.NewPaymentHandler(
		c.PaymentService,
		c.StatementService,
		c.StaleTimeout(),
		c.Config.Jobs.StaleBatchSize,
	)
	c.NotificationHandler = notificationHandler.NewNotificationHandler(c.NotificationService)
}

// Cleanup releases connections on shutdown
func (c *Container) Cleanup() {
	log.Println("Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("Failed to close asynq client: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("Failed to close Redis: %v", err)
		} else {
			log.Println("Redis connections closed")
		}
	}

	log.Println("Container cleanup completed")
}
