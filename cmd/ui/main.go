package main

import (
	"fmt"
	"net/http"
	"os"

	"finality-sim-go/internal/config"
	"finality-sim-go/internal/database"
	"finality-sim-go/internal/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// The ui binary serves the historical view over the order journal written by
// the simulator. It only reads the shared database; live state lives in the
// simulator process.
func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.Database.Enabled {
		log.Fatal("The journal viewer needs database.enabled set; there is nothing to serve without it")
	}

	// Connect to the journal database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open journal database", zap.Error(err))
	}

	// Create a handler that has access to the logger and db
	apiHandler := NewJournalHandler(log, db)

	router := mux.NewRouter()
	router.HandleFunc("/api/journal", apiHandler.JournalHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/statistics", apiHandler.StatisticsHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting journal viewer", zap.String("address", addr))

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("Journal viewer failed", zap.Error(err))
	}
}
