package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/config"
	"github.com/flicky/storefront-api/internal/handler"
	"github.com/flicky/storefront-api/internal/notify"
	"github.com/flicky/storefront-api/internal/repository"
	"github.com/flicky/storefront-api/internal/service"
	"github.com/flicky/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Error("migrate schema", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ: one channel publishes email jobs, the other consumes them.
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	addressRepo := repository.NewAddressRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	shipmentRepo := repository.NewShipmentRepository(dbPool)
	txManager := repository.NewTxManager(dbPool)

	// Notifications
	pusher := notify.NewRedisPusher(redisClient, log)
	notifier := notify.NewDispatcher(notify.NewQueueMailer(publishCh), pusher)
	smtpMailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	// Services
	inventory := service.NewInventoryLedger(productRepo, log)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, inventory, redisClient, log)
	addressSvc := service.NewAddressService(addressRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo, log)
	checkoutSvc := service.NewCheckoutService(cartSvc, productRepo, addressRepo)
	orderSvc := service.NewOrderService(orderRepo, userRepo, productRepo, cartSvc, checkoutSvc, inventory, txManager, notifier, log)
	shipmentSvc := service.NewShipmentService(shipmentRepo, orderRepo, orderSvc, txManager, log)
	sweeper := service.NewSweeper(orderSvc, shipmentSvc, cfg.Sweeper.CancelAfter, cfg.Sweeper.LostAfter, log)

	// Handlers
	router := handler.NewRouter(handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"postgres": dbPool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"rabbitmq": func(context.Context) error {
				if amqpConn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			},
		}),
		Auth:     handler.NewAuthHandler(authSvc, log),
		Product:  handler.NewProductHandler(productSvc, log),
		Address:  handler.NewAddressHandler(addressSvc, log),
		Cart:     handler.NewCartHandler(cartSvc, checkoutSvc, log),
		Order:    handler.NewOrderHandler(orderSvc, log),
		Shipment: handler.NewShipmentHandler(shipmentSvc, log),
		Events:   handler.NewEventsHandler(pusher, log),
	}, cfg.JWT.Secret, authSvc)

	// Background work
	notificationWorker := worker.NewNotificationWorker(consumeCh, smtpMailer, worker.NewRedisSentLog(redisClient), log)
	if err := notificationWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}

	scheduler := worker.NewScheduler(sweeper, log)
	if err := scheduler.Register(ctx, cfg.Sweeper.OrderCancelSpec, cfg.Sweeper.LostShipmentSpec); err != nil {
		log.Error("register sweeps", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	scheduler.Stop()
	notificationWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
