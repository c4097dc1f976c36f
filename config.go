package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"order-lifecycle-service/awsx"
)

type Config struct {
	Port string
	Env  string

	MongoURI string
	MongoDB  string

	RedisURL string
	CartTTL  time.Duration

	Currency    string
	ShippingFee int64

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	JWTSecret string

	KafkaBrokers     string
	OrderEventsTopic string
	SNSTopicArn      string
}

func LoadConfig() (*Config, error) {
	cartTTL, err := time.ParseDuration(getEnv("CART_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CART_TTL: %w", err)
	}

	shippingFee, err := strconv.ParseInt(getEnv("SHIPPING_FEE_MINOR", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_FEE_MINOR: %w", err)
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8084"),
		Env:                   getEnv("APP_ENV", "development"),
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:               getEnv("MONGO_DB", "orders"),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:               cartTTL,
		Currency:              getEnv("CURRENCY", "INR"),
		ShippingFee:           shippingFee,
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		KafkaBrokers:          os.Getenv("KAFKA_BROKERS"),
		OrderEventsTopic:      getEnv("ORDER_EVENTS_TOPIC", "order.events"),
		SNSTopicArn:           os.Getenv("ORDER_EVENTS_SNS_ARN"),
	}

	// In production the gateway and JWT secrets come from Secrets Manager.
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awsx.LoadAWSConfig(context.Background()); err == nil {
			sm := awsx.NewSecretsClient(awsCfg)
			if creds, err := sm.GetGatewayCredentials(context.Background(), "orders/GATEWAY_CREDENTIALS"); err == nil {
				if creds.KeyID != "" {
					cfg.RazorpayKeyID = creds.KeyID
				}
				if creds.KeySecret != "" {
					cfg.RazorpayKeySecret = creds.KeySecret
				}
				if creds.WebhookSecret != "" {
					cfg.RazorpayWebhookSecret = creds.WebhookSecret
				}
				if creds.JWTSecret != "" {
					cfg.JWTSecret = creds.JWTSecret
				}
			}
		}
	}

	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("payment gateway credentials incomplete")
	}
	if cfg.RazorpayWebhookSecret == "" {
		return nil, fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
