package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thaicafe/pos-api/internal/cache"
	"github.com/thaicafe/pos-api/internal/config"
	"github.com/thaicafe/pos-api/internal/events"
	"github.com/thaicafe/pos-api/internal/router"
	"github.com/thaicafe/pos-api/internal/service"
	"github.com/thaicafe/pos-api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Settlement guard is optional; without Redis the order row lock alone applies.
	var guard service.SettlementGuard
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Unable to connect to redis: %v", err)
		}
		defer client.Close()
		guard = cache.NewSettleGuard(client, cfg.SettleGuardTTL)
		log.Println("Settlement guard enabled (redis)")
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	sinks := []events.Publisher{hub}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			log.Fatalf("Unable to connect to nats: %v", err)
		}
		defer nc.Close()
		sinks = append(sinks, nc)
		log.Printf("Publishing events to NATS with prefix %q", cfg.NATSSubjectPrefix)
	}
	bus := events.NewBus(sinks...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, pool, hub, bus, guard),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
