package main

import (
	"context"
	"strings"

	"order-lifecycle-service/awsx"
	"order-lifecycle-service/controllers"
	"order-lifecycle-service/database"
	"order-lifecycle-service/gateway"
	"order-lifecycle-service/kafka"
	"order-lifecycle-service/logger"
	"order-lifecycle-service/middleware"
	"order-lifecycle-service/repository"
	"order-lifecycle-service/routes"
	"order-lifecycle-service/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development")
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	log := logger.Log

	ctx := context.Background()

	mongoClient, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	if err := database.EnsureOrderIndexes(ctx, db); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	orderRepo := repository.NewMongoOrderRepository(db.Collection(database.OrdersCollection))
	cartRepo := repository.NewRedisCartRepository(redisClient, cfg.CartTTL)

	gw := gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	verifier := gateway.NewSignatureVerifier(cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)

	var producer kafka.ProducerAPI
	if cfg.KafkaBrokers != "" {
		p := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic, log)
		defer p.Close()
		producer = p
	}

	var snsClient awsx.SNSPublisher
	var metricsClient *awsx.MetricsClient
	if awsCfg, err := awsx.LoadAWSConfig(ctx); err == nil {
		if cfg.SNSTopicArn != "" {
			snsClient = awsx.NewSNSClient(awsCfg)
		}
		metricsClient = awsx.NewMetricsClient(awsCfg)
	} else {
		log.Warn("AWS config unavailable, SNS/metrics disabled", zap.Error(err))
	}

	orderService := services.NewOrderService(
		orderRepo, cartRepo, gw, verifier,
		producer, snsClient, cfg.SNSTopicArn,
		cfg.Currency, cfg.ShippingFee, log,
	)
	adminService := services.NewAdminService(orderService, orderRepo, log)

	orderController := controllers.NewOrderController(orderService)
	cartController := controllers.NewCartController(cartRepo, log)
	adminController := controllers.NewAdminController(adminService)
	webhookController := controllers.NewWebhookController(verifier, orderService, log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	if metricsClient.IsEnabled() {
		r.Use(middleware.MetricsMiddleware(metricsClient, "order-lifecycle-service"))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := mongoClient.Ping(c.Request.Context(), nil); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "mongo": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.Register(r, orderController, cartController, adminController, webhookController, cfg.JWTSecret)

	log.Info("Starting order lifecycle service", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server exited", zap.Error(err))
	}
}
