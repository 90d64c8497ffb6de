package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/config"
	"github.com/ariefcatur/go-checkout-stock.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-stock.git/internal/notify"
	"github.com/ariefcatur/go-checkout-stock.git/internal/orchestrator"
	"github.com/ariefcatur/go-checkout-stock.git/internal/payment"
	"github.com/ariefcatur/go-checkout-stock.git/internal/postgres"
	"github.com/ariefcatur/go-checkout-stock.git/internal/redisx"
	"github.com/ariefcatur/go-checkout-stock.git/internal/reservation"
	"github.com/ariefcatur/go-checkout-stock.git/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer untuk order.confirmed
	prod := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicOrderConfirmed, 1024)
	prod.Start(ctx)

	// Repos & saga wiring
	invoices := &checkout.InvoiceRepo{DB: db}
	orders := &checkout.OrderRepo{DB: db}
	ledger := &stock.PG{DB: db}
	mgr := &reservation.Manager{
		Ledger: ledger,
		Store:  &reservation.PGStore{DB: db},
		TTL:    cfg.ReservationTTL,
	}
	svc := &orchestrator.Service{
		Carts:        &checkout.CartRepo{DB: db},
		Invoices:     invoices,
		Orders:       orders,
		Reservations: mgr,
		Gateway:      payment.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout),
		Notifier:     &notify.Kafka{Producer: prod, ServiceName: cfg.ServiceName},
		Redis:        rdb,
		Currency:     cfg.Currency,
		ServiceName:  cfg.ServiceName,
	}

	router := httpx.NewRouter()
	ch := &httpx.CheckoutHandler{
		Svc:      svc,
		Orders:   orders,
		Products: &checkout.ProductRepo{DB: db},
		Invoices: invoices,
		Ledger:   ledger,
		Redis:    rdb,
	}
	ch.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
