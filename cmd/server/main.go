package main

import (
	"mediserve-be/internal/api"
	"mediserve-be/internal/cart"
	"mediserve-be/internal/config"
	"mediserve-be/internal/db"
	"mediserve-be/internal/event"
	"mediserve-be/internal/logger"
	"mediserve-be/internal/medicine"
	"mediserve-be/internal/middleware"
	"mediserve-be/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
	} else {
		logger.L().Warn("REDIS_ADDR not set, catalog cache disabled")
	}

	var publisher event.Publisher
	if cfg.AMQPUrl != "" {
		var err error
		publisher, err = event.NewAMQPPublisher(cfg.AMQPUrl, "orders")
		if err != nil {
			logger.L().Fatal("failed to init event publisher", zap.Error(err))
		}
		defer publisher.Close()
	} else {
		logger.L().Warn("AMQP_URL not set, order events disabled")
	}

	medicineRepo := medicine.NewRepository(database)
	medicineSvc := medicine.NewService(medicineRepo, rdb)

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, medicineRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, publisher)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging())
	r.Use(middleware.RateLimit())

	handler := api.NewHandler(medicineSvc, cartSvc, orderSvc)
	handler.RegisterRoutes(r)

	logger.L().Info("server starting", zap.String("port", cfg.AppPort))
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logger.L().Fatal("server run", zap.Error(err))
	}
}
