package main

import (
	"encoding/json"
	"net/http"
	"time"

	"finality-sim-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JournalHandler holds dependencies for the journal API endpoints.
type JournalHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(log *zap.Logger, db *gorm.DB) *JournalHandler {
	return &JournalHandler{log: log, db: db}
}

// JournalHandler returns every journaled order, most recent first.
func (h *JournalHandler) JournalHandler(w http.ResponseWriter, r *http.Request) {
	var orders []models.SettledOrder
	if err := h.db.Order("resolved_at desc").Find(&orders).Error; err != nil {
		h.log.Error("Failed to read journal", zap.Error(err))
		http.Error(w, "Failed to read journal", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// StatsDetail holds outcome counts for a given period.
type StatsDetail struct {
	TotalOrders int     `json:"total_orders"`
	Permanent   int     `json:"permanent"`
	Reverted    int     `json:"reverted"`
	Cancelled   int     `json:"cancelled"`
	RevertRate  float64 `json:"revert_rate"` // reverted / (permanent + reverted)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

func (d *StatsDetail) add(order models.SettledOrder) {
	d.TotalOrders++
	switch order.Outcome {
	case string(models.StatusPermanent):
		d.Permanent++
	case string(models.StatusReverted):
		d.Reverted++
	case string(models.StatusCancelled):
		d.Cancelled++
	}
}

func (d *StatsDetail) finish() {
	if resolved := d.Permanent + d.Reverted; resolved > 0 {
		d.RevertRate = float64(d.Reverted) / float64(resolved)
	}
}

// StatisticsHandler calculates and returns finality outcome statistics.
func (h *JournalHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var orders []models.SettledOrder
	if err := h.db.Find(&orders).Error; err != nil {
		h.log.Error("Failed to read journal for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	cutoff := time.Now().Add(-24 * time.Hour).Unix()

	var response StatisticsResponse
	for _, order := range orders {
		response.AllTime.add(order)
		if order.ResolvedAt >= cutoff {
			response.Since24h.add(order)
		}
	}
	response.AllTime.finish()
	response.Since24h.finish()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
