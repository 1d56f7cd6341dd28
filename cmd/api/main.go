package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/LarinhaPrates/canteen-orders/internal/admin"
	"github.com/LarinhaPrates/canteen-orders/internal/cart"
	"github.com/LarinhaPrates/canteen-orders/internal/catalog"
	"github.com/LarinhaPrates/canteen-orders/internal/checkout"
	h "github.com/LarinhaPrates/canteen-orders/internal/http"
	"github.com/LarinhaPrates/canteen-orders/internal/identity"
	"github.com/LarinhaPrates/canteen-orders/internal/publisher"
	"github.com/LarinhaPrates/canteen-orders/internal/repository"
)

type Config struct {
	HTTPPort        string
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	DBName          string
	MigrationsDir   string
	RedisAddr       string
	KafkaBrokers    []string
	SessionTTL      time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnvInt("DB_PORT", 5432),
		DBUser:          getEnv("DB_USER", "canteen"),
		DBPassword:      getEnv("DB_PASSWORD", "canteen"),
		DBName:          getEnv("DB_NAME", "canteen"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "./migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		SessionTTL:      30 * time.Minute,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	catalogSvc := catalog.NewService(repo, catalog.NewRedisCache(redisClient))
	resolver := identity.NewResolver(repo, catalogSvc)
	pipeline := checkout.NewPipeline(repo, repo, resolver)
	adminSvc := admin.NewService(repo)
	sessions := cart.NewSessionStore(cfg.SessionTTL)
	poller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go sessions.Run(bgCtx)
	go poller.Run(bgCtx)

	router := h.NewRouter(h.RouterDeps{
		Cart:     h.NewCartHandler(sessions, catalogSvc),
		Checkout: h.NewCheckoutHandler(sessions, pipeline),
		Orders:   h.NewOrdersHandler(repo),
		Products: h.NewProductHandler(catalogSvc),
		Admin:    h.NewAdminHandler(adminSvc),
		Verifier: h.StubVerifier{},
		Timeout:  cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "canteen-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("canteen API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
