// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"shopcore-service/internal/cache"
	"shopcore-service/internal/carrier"
	"shopcore-service/internal/config"
	"shopcore-service/internal/db"
	offerHandler "shopcore-service/internal/handlers/offer"
	shippingHandler "shopcore-service/internal/handlers/shipping"
	"shopcore-service/internal/middleware"
	"shopcore-service/internal/repository/postgres"
	offerservice "shopcore-service/internal/service/offer"
	shippingservice "shopcore-service/internal/service/shipping"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	redemptionRepo := postgres.NewRedemptionRepository(pool)

	// ----- Caches -----
	offerCache := cache.NewOfferCache(redisClient, 0, logger)
	tokenStore := cache.NewTokenStore(redisClient, "shiprocket")

	// ----- Carrier client -----
	carrierClient := carrier.NewClient(carrier.Config{
		BaseURL:  s.cfg.Carrier.BaseURL,
		Email:    s.cfg.Carrier.Email,
		Password: s.cfg.Carrier.Password,
		Timeout:  s.cfg.Carrier.Timeout,
	}, tokenStore, logger)

	// ----- Services -----
	offerService := offerservice.NewOfferService(offerRepo, redemptionRepo, dbWrapper, offerCache, logger)
	aggregatorService := shippingservice.NewAggregatorService(carrierClient, shippingservice.Options{
		PickupPostcode:        s.cfg.Carrier.PickupPostcode,
		FreeShippingThreshold: s.cfg.Shipping.FreeShippingThreshold,
		DefaultFlatRate:       s.cfg.Shipping.DefaultFlatRate,
	}, logger)

	// ----- Handlers -----
	offerHandlerInst := offerHandler.NewOfferHandler(offerService)
	shippingHandlerInst := shippingHandler.NewShippingHandler(aggregatorService)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(s.cfg.JWTSecret)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		OfferHandler:    offerHandlerInst,
		ShippingHandler: shippingHandlerInst,
		AuthMiddleware:  authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
