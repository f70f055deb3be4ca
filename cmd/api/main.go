package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/sonar/configs"
	"github.com/navid-fn/sonar/internal/bitpin"
	"github.com/navid-fn/sonar/internal/feed"
	"github.com/navid-fn/sonar/internal/handler"
	"github.com/navid-fn/sonar/internal/poller"
	"github.com/navid-fn/sonar/internal/router"
	"github.com/navid-fn/sonar/internal/service"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func main() {
	cfg := configs.AppLoad()
	logger := newLogger()

	client := bitpin.NewClient(bitpin.Config{
		BaseURL:        cfg.API.BaseURL,
		MarketsVersion: cfg.API.MarketsVersion,
		OrdersVersion:  cfg.API.OrdersVersion,
		TradesVersion:  cfg.API.TradesVersion,
		SnapshotDepth:  cfg.API.SnapshotDepth,
		Timeout:        cfg.API.RequestTimeout,
	}, logger)

	// One request budget shared by both pollers.
	limiter := rate.NewLimiter(rate.Limit(cfg.API.RatePerSecond), 10)

	var publisher feed.Publisher
	if cfg.Feed.Broker != "" {
		kafkaPublisher := feed.NewKafkaPublisher(cfg.Feed.Broker, cfg.Feed.Topic, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Infof("Trade feed enabled on %s topic %s", cfg.Feed.Broker, cfg.Feed.Topic)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	markets := poller.NewMarketPoller(client, limiter, cfg.Poll.MarketsInterval, logger)
	books := poller.NewBookPoller(client, limiter, cfg.Poll.SnapshotInterval, publisher, logger)

	if err := markets.Start(ctx); err != nil {
		logger.Fatalf("Failed to start market poller: %v", err)
	}
	defer markets.Stop()

	if err := books.Start(ctx); err != nil {
		logger.Fatalf("Failed to start book poller: %v", err)
	}
	defer books.Stop()

	marketService := service.NewMarketService(client, markets, books)
	marketHandler := handler.NewMarketHandler(marketService)

	engine := router.NewRouter(&router.Config{
		MarketHandler: marketHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	logger.Infof("Listening on :%s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
}
