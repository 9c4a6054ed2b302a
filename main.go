package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"laundry-api/authz"
	"laundry-api/config"
	"laundry-api/fulfillment"
	"laundry-api/gateway"
	"laundry-api/handlers"
	"laundry-api/logger"
	"laundry-api/middleware"
	"laundry-api/notify"
	"laundry-api/routes"
	"laundry-api/settlement"
	"laundry-api/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("LAUNDRY_CONFIG"), "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "laundry-api:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log, cfg.App.Env); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := store.Bootstrap(db, cfg.Bootstrap); err != nil {
		return err
	}
	logger.Info("database connected and migrated", zap.String("driver", cfg.Database.Driver))

	var publisher notify.Publisher = notify.LogPublisher{}
	if cfg.Notifications.AMQPURL != "" {
		amqpPub, err := notify.DialAMQP(cfg.Notifications.AMQPURL, cfg.Notifications.Exchange)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}
	notifier := notify.NewAsync(publisher, cfg.Notifications.BufferSize)

	uow := store.NewUnitOfWork(db, store.RetryPolicyFromConfig(cfg.Database.Retry), notifier)
	gate := authz.ContextGate{}
	gw := gateway.NewSimulated(cfg.Gateway.FailCharges, cfg.Gateway.FailRefunds)
	h := handlers.New(db,
		fulfillment.NewService(uow, gate),
		settlement.NewService(uow, gate, gw),
		cfg.Auth,
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.CORS(cfg.Server.AllowOrigins),
		middleware.RateLimit(cfg.Server.RateLimit),
	)
	routes.SetupRoutes(r, h, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the notifier outlives the HTTP server so events from drained requests still go out
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(notifyCtx)
	})
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		defer stopNotify()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
