package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/infrastructure/payment"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/repo"
	"storefront/internal/server"
	"storefront/internal/service"
	"storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatalf("storefront stopped: %v", err)
	}
	log.Info("storefront stopped cleanly")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.New(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer dbService.Close()
	db := dbService.DB()

	if err := database.Migrate(db); err != nil {
		return err
	}

	m := metrics.New()

	pendingRepo, closePending, err := newPendingRepo(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closePending()

	notifier, closeNotifier := newNotifier(cfg)
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, 10*time.Second)
	defer dispatcher.Wait()

	var gateway payment.PaymentGateway
	if cfg.Gateway.Mock {
		log.Warn("using the mock payment gateway")
		gateway = payment.NewMockGateway(cfg.BackendURL)
	} else {
		gateway = payment.NewHTTPGateway(payment.HTTPGatewayConfig{
			URL:       cfg.Gateway.URL,
			StoreID:   cfg.Gateway.StoreID,
			StorePass: cfg.Gateway.StorePass,
			Timeout:   cfg.Gateway.Timeout,
		}, nil)
	}

	userRepo := repo.NewUserRepo(db)
	cartRepo := repo.NewCartRepo(db)
	variantRepo := repo.NewVariantRepo(db)
	orderRepo := repo.NewOrderRepo(db)

	checkoutService := service.NewCheckoutService(db, cartRepo, variantRepo, orderRepo, userRepo, dispatcher, m)
	paymentService := service.NewPaymentService(
		service.PaymentConfig{BackendURL: cfg.BackendURL, Currency: cfg.Gateway.Currency},
		cartRepo, userRepo, orderRepo, pendingRepo, checkoutService, gateway, m,
	)

	srv := server.New(cfg, server.Deps{
		DB:       dbService,
		Users:    userRepo,
		Carts:    service.NewCartService(db, cartRepo, variantRepo),
		Orders:   service.NewOrderService(orderRepo),
		Checkout: checkoutService,
		Payments: paymentService,
		Metrics:  m,
	})
	httpServer := srv.HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		worker.NewPendingSweeper(pendingRepo, m, cfg.SweepInterval, cfg.PendingTTL).Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newPendingRepo(ctx context.Context, cfg *config.Config, db *sql.DB) (repo.PendingPaymentRepo, func(), error) {
	if cfg.PendingStore != "redis" {
		return repo.NewPendingPaymentRepo(db), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	log.WithField("addr", cfg.RedisAddr).Info("pending payments stored in redis")
	return repo.NewRedisPendingPaymentRepo(rdb, cfg.PendingTTL), func() { rdb.Close() }, nil
}

func newNotifier(cfg *config.Config) (notify.Notifier, func()) {
	switch cfg.Notifier {
	case "smtp":
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}), func() {}
	case "kafka":
		n := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		return n, func() {
			if err := n.Close(); err != nil {
				log.Errorf("close kafka writer: %v", err)
			}
		}
	default:
		return notify.LogNotifier{}, func() {}
	}
}
