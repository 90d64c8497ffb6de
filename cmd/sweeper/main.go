package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/config"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-stock.git/internal/postgres"
	"github.com/ariefcatur/go-checkout-stock.git/internal/reservation"
	"github.com/ariefcatur/go-checkout-stock.git/internal/stock"
	"github.com/ariefcatur/go-checkout-stock.git/internal/sweeper"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Producer untuk reservation.released
	prod := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicReservationReleased, 1024)
	prod.Start(ctx)

	store := &reservation.PGStore{DB: db}
	mgr := &reservation.Manager{
		Ledger: &stock.PG{DB: db},
		Store:  store,
		TTL:    cfg.ReservationTTL,
	}
	sw := &sweeper.Sweeper{
		Reservations: mgr,
		Index:        store,
		Interval:     cfg.SweepInterval,
		Producer:     prod,
		ServiceName:  cfg.ServiceName + "-sweeper",
	}

	go func() {
		log.Printf("sweeper started: interval=%s ttl=%s", cfg.SweepInterval, cfg.ReservationTTL)
		sw.Run(ctx)
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down sweeper...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
