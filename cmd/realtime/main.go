package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/realtime"
	"github.com/example/storefront/internal/user"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "shop-events")
	addr := ":" + getEnv("PORT", "8081")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("[Realtime] JWT_SECRET environment variable is required")
	}

	log.Println("[Realtime] ========================================")
	log.Println("[Realtime] Event fan-out server (SSE)")
	log.Println("[Realtime] ========================================")
	log.Printf("[Realtime] Kafka: %v", kafkaBrokers)

	jwtService := auth.NewJWTService(jwtSecret, 15*time.Minute, 7*24*time.Hour)
	hub := realtime.NewHub()

	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, "realtime")
	defer consumer.Close()

	go func() {
		log.Println("[Realtime] Consuming events...")
		if err := consumer.Consume(ctx, hub.HandleEvent); err != nil {
			if ctx.Err() == nil {
				log.Printf("[Realtime] Consumer error: %v", err)
			}
		}
	}()

	mux := http.NewServeMux()
	requireAuth := middleware.AuthMiddleware(jwtService)

	// Subscribers get their own event stream. Admins may name a key to
	// watch another stream, or "" for everything.
	mux.Handle("/events", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r.Context())
		key := claims.UserID
		if claims.Role == user.RoleAdmin {
			if requested, ok := r.URL.Query()["key"]; ok {
				key = requested[0]
			}
		}
		hub.ServeSSE(w, r, key)
	})))

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("[Realtime] Server started on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Realtime] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Realtime] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
