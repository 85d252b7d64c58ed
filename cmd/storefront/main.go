package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/apiclient"
	"github.com/bruno-romeu/frontend-ecommerce/internal/cache"
	"github.com/bruno-romeu/frontend-ecommerce/internal/config"
	"github.com/bruno-romeu/frontend-ecommerce/internal/events"
	h "github.com/bruno-romeu/frontend-ecommerce/internal/http"
	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
	"github.com/bruno-romeu/frontend-ecommerce/internal/postal"
	"github.com/bruno-romeu/frontend-ecommerce/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		lg.Fatal("Redis connection failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	lg.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Checkout events are optional; without brokers they are dropped.
	var publisher events.Publisher = events.Nop{}
	var publisherDone sync.WaitGroup
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaTopic, lg, brokers...)
		publisher = kafkaPublisher
		publisherDone.Add(1)
		go func() {
			defer publisherDone.Done()
			kafkaPublisher.Run(ctx)
		}()
		lg.Info("Publishing checkout events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	builder := session.Builder{
		APIBaseURL: cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		Breaker:    apiclient.NewBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, lg),
		Cache:      cache.NewRedisCache(redisClient, cfg.SessionTTL),
		Publisher:  publisher,
		Logger:     lg,
	}
	registry := session.NewRegistry(builder.Build, cfg.SessionTTL, lg)
	defer registry.Close()

	router := h.NewRouter(h.RouterConfig{
		Sessions:       registry,
		Signer:         session.NewSigner(cfg.SessionSecret, cfg.SessionTTL),
		Postal:         postal.NewClient(cfg.PostalBaseURL, cfg.RequestTimeout),
		Logger:         lg,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
		CookieSecure:   cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("Storefront starting", zap.String("port", cfg.HTTPPort), zap.String("api", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	lg.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}
	publisherDone.Wait()

	lg.Info("server exited")
}
