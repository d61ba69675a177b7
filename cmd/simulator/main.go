package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finality-sim-go/internal/config"
	"finality-sim-go/internal/database"
	"finality-sim-go/internal/logger"
	"finality-sim-go/internal/pricefeed"
	"finality-sim-go/internal/sim"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Open the order journal, if enabled
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to open journal database", zap.Error(err))
		}
		log.Info("Order journal enabled", zap.String("dsn", cfg.Database.DSN))
	} else {
		log.Info("Order journal disabled, running fully in memory")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Pick the reference price source
	var feed pricefeed.Feed
	switch cfg.PriceFeed.Mode {
	case "rest":
		restFeed := pricefeed.NewRestFeed(&cfg.PriceFeed, cfg.Simulation.ReferencePrice, log)
		if _, err := restFeed.Refresh(ctx); err != nil {
			log.Warn("Initial price refresh failed, starting from the reference price", zap.Error(err))
		}
		go restFeed.Run(ctx, time.Duration(cfg.PriceFeed.RefreshInterval)*time.Second)
		feed = restFeed
	default:
		feed = pricefeed.NewSimulatedFeed(
			cfg.Simulation.ReferencePrice,
			cfg.PriceFeed.CandleCount,
			rand.New(rand.NewSource(time.Now().UnixNano())),
		)
	}
	log.Info("Price feed ready",
		zap.String("mode", cfg.PriceFeed.Mode),
		zap.Float64("price", feed.CurrentPrice()))

	// Wire up the simulation core
	store := sim.NewStore(cfg.Simulation.InitialBalance)
	engine := sim.NewEngine(log, &cfg.Simulation, store, feed, sim.NewTimerScheduler(), db)

	// HTTP presentation boundary
	apiHandler := NewAPIHandler(log, engine, feed)
	router := mux.NewRouter()
	router.HandleFunc("/api/state", apiHandler.StateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/orders", apiHandler.PlaceOrderHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/orders/{id}", apiHandler.CancelOrderHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/stats", apiHandler.StatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/candles", apiHandler.CandlesHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", apiHandler.HealthHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		log.Info("Starting API server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Run the settlement loop until the shutdown signal arrives
	engine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Simulator has been shut down.")
}
