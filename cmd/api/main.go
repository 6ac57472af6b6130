package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hmkwon/dishpatch-backend/api/routes"
	"github.com/hmkwon/dishpatch-backend/internal/access"
	"github.com/hmkwon/dishpatch-backend/internal/blacklist"
	"github.com/hmkwon/dishpatch-backend/internal/carts"
	"github.com/hmkwon/dishpatch-backend/internal/coupons"
	"github.com/hmkwon/dishpatch-backend/internal/deliveries"
	"github.com/hmkwon/dishpatch-backend/internal/notifications"
	"github.com/hmkwon/dishpatch-backend/internal/orders"
	"github.com/hmkwon/dishpatch-backend/internal/pricing"
	"github.com/hmkwon/dishpatch-backend/internal/products"
	"github.com/hmkwon/dishpatch-backend/internal/reviews"
	"github.com/hmkwon/dishpatch-backend/internal/stores"
	"github.com/hmkwon/dishpatch-backend/internal/users"
	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
	"github.com/hmkwon/dishpatch-backend/pkg/metrics"
	"github.com/hmkwon/dishpatch-backend/pkg/migrate"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/idempotency"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox/registry"
	"github.com/hmkwon/dishpatch-backend/pkg/pubsub"
	"github.com/hmkwon/dishpatch-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	registerer := prometheus.NewRegistry()
	coreMetrics := metrics.NewCoreMetrics(registerer)

	storeRepo := stores.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	deliveryRepo := deliveries.NewRepository(dbClient.DB())
	reviewRepo := reviews.NewRepository(dbClient.DB())
	blacklistRepo := blacklist.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())

	engine := pricing.NewEngine()
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	hub := notifications.NewHub(cfg.Hub, coreMetrics)

	gate, err := access.NewGate(access.GateParams{
		Stores:    storeRepo,
		Blacklist: blacklistRepo,
		Orders:    orderRepo,
		Reviews:   reviewRepo,
	})
	requireService(logg, "access gate", err)

	storesService, err := stores.NewService(storeRepo)
	requireService(logg, "stores service", err)

	productsService, err := products.NewService(productRepo, storeRepo)
	requireService(logg, "products service", err)

	couponsService, err := coupons.NewService(couponRepo)
	requireService(logg, "coupons service", err)

	blacklistService, err := blacklist.NewService(blacklistRepo, storeRepo)
	requireService(logg, "blacklist service", err)

	notificationsService, err := notifications.NewService(notificationRepo, nil)
	requireService(logg, "notifications service", err)

	cartsService, err := carts.NewService(carts.ServiceParams{
		Snapshots: redisClient,
		Products:  productRepo,
		Stores:    storeRepo,
		Coupons:   couponRepo,
		Gate:      gate,
		Engine:    engine,
		Config:    cfg.Cart,
	})
	requireService(logg, "carts service", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		DB:       dbClient,
		Repo:     orderRepo,
		Stores:   storeRepo,
		Products: productRepo,
		Stock:    productRepo,
		Coupons:  couponRepo,
		Gate:     gate,
		Engine:   engine,
		Outbox:   outboxService,
		Metrics:  coreMetrics,
	})
	requireService(logg, "orders service", err)

	deliveriesService, err := deliveries.NewService(deliveries.ServiceParams{
		DB:      dbClient,
		Repo:    deliveryRepo,
		Orders:  orderRepo,
		Lifecyc: ordersService,
		Users:   userRepo,
		Outbox:  outboxService,
		Metrics: coreMetrics,
	})
	requireService(logg, "deliveries service", err)

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		DB:     dbClient,
		Repo:   reviewRepo,
		Orders: orderRepo,
		Stores: storeRepo,
		Users:  userRepo,
		Gate:   gate,
		Outbox: outboxService,
	})
	requireService(logg, "reviews service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Feed the local hub from the domain subscription so SSE clients on this
	// instance see events produced anywhere in the deployment.
	startEventFeed(ctx, cfg, logg, pubsubClient, redisClient, notificationRepo, hub)

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Metrics:       registerer,
		Carts:         cartsService,
		Orders:        ordersService,
		Deliveries:    deliveriesService,
		Reviews:       reviewsService,
		Blacklist:     blacklistService,
		Coupons:       couponsService,
		Notifications: notificationsService,
		Hub:           hub,
		Stores:        storesService,
		Products:      productsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func startEventFeed(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	pubsubClient *pubsub.Client,
	redisClient *redis.Client,
	repo *notifications.Repository,
	hub *notifications.Hub,
) {
	subscription := pubsubClient.DomainSubscription()
	if subscription == nil {
		logg.Warn(ctx, "domain subscription not configured; event stream will be idle")
		return
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}
	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}
	consumer, err := notifications.NewConsumer(eventRegistry, manager, repo, hub, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification consumer", err)
		os.Exit(1)
	}

	go func() {
		err := subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
			raw := notifications.RawMessage{
				Attributes: msg.Attributes,
				Data:       msg.Data,
			}
			if err := consumer.Handle(msgCtx, raw); err != nil {
				logg.Error(logg.WithField(msgCtx, "message_id", msg.ID), "failed to handle domain event", err)
				msg.Nack()
				return
			}
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "domain event feed stopped", err)
		}
	}()
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to construct "+name, err)
		os.Exit(1)
	}
}
