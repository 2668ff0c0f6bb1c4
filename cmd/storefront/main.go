package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/session"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("db init: %v", err)
	}
	local, redisClient, err := config.InitLocalCarts(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("redis init: %v", err)
	}

	events, closeEvents, err := config.InitPublisher(cfg)
	if err != nil {
		log.Fatalf("kafka init: %v", err)
	}

	store := &repo.GormRepo{DB: db}
	cartBus := bus.New(bus.DefaultBuffer)

	cartSvc := &service.CartService{
		Repo:        store,
		Products:    store,
		Local:       local,
		Bus:         cartBus,
		Events:      events,
		MaxQuantity: cfg.MaxQuantityPerRequest,
	}
	orderSvc := &service.OrderService{Repo: store, Bus: cartBus, Events: events}
	merger := &service.Merger{Local: local, Repo: store, Bus: cartBus, Events: events}

	ready := map[string]httpserver.Check{"db": store.Ping}
	if redisClient != nil {
		ready["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc},
		SessionHandler: &httpserver.SessionHTTP{Merger: merger},
		EventsHandler:  &httpserver.EventsHTTP{Bus: cartBus, Cart: cartSvc},
		JWTSecret:      []byte(cfg.JWTAccessSecret),
		AuthClient:     authclient.NewClient(cfg.AuthHTTPURL),
		CSRF:           csrf.Config{Secure: cfg.CSRFSecure, EnforceSameOrigin: true},
		Session:        session.Config{Secure: cfg.CSRFSecure},
		Ready:          ready,
	})

	// Request contexts hang off streamCtx so open event streams end on shutdown.
	streamCtx, endStreams := context.WithCancel(context.Background())

	// No WriteTimeout: the cart event stream is long-lived.
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}
	srv.RegisterOnShutdown(endStreams)

	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := closeEvents(); err != nil {
		logger.Error("kafka close", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("storefront stopped")
}
