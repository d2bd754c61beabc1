package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"salepoint/internal/auth"
	"salepoint/internal/config"
	custommiddleware "salepoint/internal/middleware"
	"salepoint/internal/notify"
	"salepoint/internal/payment"
	"salepoint/internal/repository"
	"salepoint/internal/sale"
	"salepoint/internal/stock"
	"salepoint/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

// NewServer wires the full sale engine behind a chi router. A nil db
// runs on the in-memory sample catalog, which is how development mode
// and the demo terminal operate.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	router := chi.NewRouter()

	for _, m := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(m)
	}
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var catalog repository.CatalogStore
	var transactions repository.TransactionRepository
	if db != nil {
		catalog = repository.NewCatalogRepository(db)
		transactions = repository.NewTransactionRepository(db)
	} else {
		logger.Warn("No database configured, running on the in-memory sample catalog")
		catalog = repository.NewSampleCatalog()
		transactions = repository.NewMemoryTransactionLog()
	}

	ledger := stock.NewLedger(catalog, cfg.Stock.CriticalMultiplier, logger)

	sms := notify.NewTwilioSMS(cfg.Notify.SMS, &http.Client{Timeout: 10 * time.Second}, logger)
	email := notify.NewSMTPEmail(cfg.Notify.Email, logger)
	hub := notify.NewHub(ledger, sms, email, logger)

	processor := payment.NewProcessor(cfg.Payments, payment.NewRegistry(cfg.Payments), logger)

	idem := sale.NewIdempotencyStore(redisClient, 24*time.Hour)
	orchestrator := sale.NewOrchestrator(cfg.Sales, ledger, processor, hub, catalog, transactions, idem, logger)

	authService := auth.NewService(catalog, hub, cfg.Auth, logger)
	sessions := transport.NewSessionStore(ledger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.Auth.JWTSecret, logger)
	rateLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger)
	router.Use(rateLimiter)

	transport.NewAuthHandler(authService, sessions, logger).RegisterRoutes(router, authMiddleware)
	transport.NewInventoryHandler(catalog, ledger, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCartHandler(sessions, catalog, cfg.Sales, logger).RegisterRoutes(router, authMiddleware)
	transport.NewSaleHandler(sessions, orchestrator, processor, transactions, cfg.Sales, logger).RegisterRoutes(router, authMiddleware)
	transport.NewNotificationHandler(hub, logger).RegisterRoutes(router, authMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute, // checkout can hold a connection through payment confirmation
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
