package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	adminhttp "github.com/Skotchmaster/storefront/internal/admin/httpserver"
	adminsvc "github.com/Skotchmaster/storefront/internal/admin/service"
	authhttp "github.com/Skotchmaster/storefront/internal/auth/httpserver"
	authmw "github.com/Skotchmaster/storefront/internal/auth/middleware"
	authmodels "github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	authsvc "github.com/Skotchmaster/storefront/internal/auth/service"
	"github.com/Skotchmaster/storefront/internal/auth/token"
	cataloghttp "github.com/Skotchmaster/storefront/internal/catalog/httpserver"
	catalogmodels "github.com/Skotchmaster/storefront/internal/catalog/models"
	catalogrepo "github.com/Skotchmaster/storefront/internal/catalog/repo"
	catalogsvc "github.com/Skotchmaster/storefront/internal/catalog/service"
	"github.com/Skotchmaster/storefront/internal/payment"
	paymenthttp "github.com/Skotchmaster/storefront/internal/payment/httpserver"
	purchasehttp "github.com/Skotchmaster/storefront/internal/purchase/httpserver"
	purchasemodels "github.com/Skotchmaster/storefront/internal/purchase/models"
	purchaserepo "github.com/Skotchmaster/storefront/internal/purchase/repo"
	purchasesvc "github.com/Skotchmaster/storefront/internal/purchase/service"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/lock"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer pkgdb.Close(db)

	users, closeUsers, err := openUserStore(initCtx, cfg, db)
	if err != nil {
		return err
	}
	defer closeUsers()

	if err := db.WithContext(initCtx).AutoMigrate(&catalogmodels.Product{}, &purchasemodels.Purchase{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	locker, closeLocker, err := openLocker(initCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers)
		logger.Info("kafka_producer_ready", "brokers", cfg.KafkaBrokers)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}()

	tokens := token.NewService([]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret), cfg.AccessTTL, cfg.RefreshTTL, users)
	policy := cookies.Policy{Secure: cfg.IsProduction(), Path: "/"}
	gate := &authmw.Gate{Tokens: tokens, Users: users, Cookies: policy, Locker: locker, Events: publisher}

	products := &catalogrepo.GormRepo{DB: db}
	purchases := &purchasesvc.PurchaseService{
		Repo:     &purchaserepo.GormRepo{DB: db},
		Events:   publisher,
		Currency: cfg.PaymentCurrency,
	}

	deps := &httpserver.Deps{
		Logger: logger,
		DB:     db,
		Gate:   gate,
		AuthHandler: &authhttp.AuthHTTP{
			Svc:        &authsvc.AuthService{Users: users, Tokens: tokens, Locker: locker, Events: publisher},
			Cookies:    policy,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		CatalogHandler:  &cataloghttp.CatalogHTTP{Svc: &catalogsvc.CatalogService{Repo: products, Events: publisher}},
		PurchaseHandler: &purchasehttp.PurchaseHTTP{Svc: purchases},
		AdminHandler: &adminhttp.AdminHTTP{Svc: &adminsvc.AdminService{
			Users:     users,
			Products:  products,
			Purchases: purchases,
		}},
		CORSOrigins: cfg.CORSOrigins,
		LoginRate:   rate.Limit(cfg.LoginRatePerSecond),
		LoginBurst:  cfg.LoginRateBurst,
	}
	if cfg.StripeSecretKey != "" {
		deps.PaymentHandler = &paymenthttp.PaymentHTTP{
			Gateway:   payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
			Purchases: purchases,
			Currency:  cfg.PaymentCurrency,
		}
	} else {
		logger.Warn("payments_disabled", "reason", "STRIPE_SECRET_KEY is not set")
	}

	e := httpserver.New(deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}

// openUserStore returns the UserStore selected by STORE_DRIVER.
func openUserStore(ctx context.Context, cfg config.Config, db *gorm.DB) (repo.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, users, err := repo.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo init: %w", err)
		}
		return users, func() { disconnect(client) }, nil
	default:
		if err := db.WithContext(ctx).AutoMigrate(&authmodels.User{}); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate users: %w", err)
		}
		return &repo.GormRepo{DB: db}, func() {}, nil
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

// openLocker serializes refresh-token writes across instances when redis is
// configured, and within this process otherwise.
func openLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("redis init: %w", err)
	}
	return lock.NewRedisLocker(client), func() { _ = client.Close() }, nil
}
