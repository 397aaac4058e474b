package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mastant/fieldsync/config"
	"github.com/mastant/fieldsync/internal/auth"
	"github.com/mastant/fieldsync/internal/bootstrap"
	"github.com/mastant/fieldsync/internal/cache"
	"github.com/mastant/fieldsync/internal/kafka"
	"github.com/mastant/fieldsync/internal/notify"
	"github.com/mastant/fieldsync/internal/repository"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
	"github.com/mastant/fieldsync/internal/service/qrsync"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tokens auth.TokenSource
	if cfg.Auth.RefreshToken != "" {
		tokens = auth.NewRefreshingTokenSource(
			cfg.Auth.RefreshToken,
			auth.HTTPRefresher(cfg.Backend.BaseURL, cfg.Auth.RefreshPath, nil),
		)
	} else {
		tokens = auth.NewStaticTokenSource(cfg.Auth.AccessToken)
	}

	client := repository.NewClient(cfg.Backend, tokens)
	bookingRepo := repository.NewBookingRepository(client)
	qrRepo := repository.NewQrRepository(client)

	observers := qrsync.NewManager(qrRepo,
		qrsync.WithManagerInterval(cfg.QR.PollInterval()),
		qrsync.WithManagerFailureBudget(cfg.QR.MaxFailures),
	)
	defer observers.Shutdown()

	opts := []lifecycle.ServiceOption{lifecycle.WithPerPage(cfg.Agent.ListPerPage)}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Agent.CacheTTLSeconds)*time.Second)
		opts = append(opts, lifecycle.WithCache(redisCache))
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.WorkEventsTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		opts = append(opts, lifecycle.WithProducer(producer, cfg.Kafka.WorkEventsTopic))
	}

	service := lifecycle.NewService(bookingRepo, qrRepo, observers, opts...)

	if _, err := service.Refresh(ctx); err != nil {
		log.Printf("initial booking sync failed: %v", err)
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.BookingUpdatesTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingUpdatesTopic)
		defer consumer.Close()

		sender := notify.NewSender()

		go func() {
			if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
				var update kafka.BookingUpdate
				if err := json.Unmarshal(msg.Value, &update); err != nil {
					log.Printf("decode booking update error: %v", err)
					return nil
				}
				if err := sender.Send(ctx, update); err != nil {
					log.Printf("notify error: %v", err)
				}
				if _, err := service.Refresh(ctx); err != nil {
					log.Printf("refresh after booking update failed: %v", err)
				}
				return nil
			}); err != nil {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	}

	refreshTicker := time.NewTicker(time.Duration(cfg.Agent.RefreshSweepMinutes) * time.Minute)
	defer refreshTicker.Stop()

	go func() {
		for {
			select {
			case <-refreshTicker.C:
				if _, err := service.Refresh(ctx); err != nil {
					log.Printf("periodic refresh failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := bootstrap.Run(ctx, cfg, service); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
