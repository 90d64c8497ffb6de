package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/config"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-stock.git/internal/mailer"
	"github.com/ariefcatur/go-checkout-stock.git/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPAddr != "" {
		sender = &mailer.SMTP{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}
	svc := &mailer.Service{Redis: rdb, Sender: sender}

	// Consumer
	group := getenv("MAILER_GROUP", "mailer-svc")
	workers := mustAtoi(os.Getenv("MAILER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, checkout.TopicOrderConfirmed, workers)

	go func() {
		log.Printf("mailer consumer started: group=%s topic=%s workers=%d", group, checkout.TopicOrderConfirmed, workers)
		if err := cons.Start(ctx, svc.HandleOrderConfirmed); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down mailer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
