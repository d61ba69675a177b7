package pricefeed

import (
	"math"
	"math/rand"
	"time"
)

// Candle is one daily OHLC bar of the reference chart.
type Candle struct {
	Time  string  `json:"time"` // YYYY-MM-DD
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Feed supplies the reference price used for market orders and affordability
// checks, plus chart seed data for the presentation layer.
type Feed interface {
	CurrentPrice() float64
	Candles() []Candle
}

// randomWalk generates n daily candles ending yesterday, starting from the
// given price. Each close drifts by at most +-1.5, wicks extend by up to 2.
func randomWalk(start float64, n int, rng *rand.Rand) []Candle {
	candles := make([]Candle, 0, n)
	price := start
	today := time.Now()

	for i := 0; i < n; i++ {
		open := price
		close := open + (rng.Float64()-0.5)*3
		high := math.Max(open, close) + rng.Float64()*2
		low := math.Min(open, close) - rng.Float64()*2

		day := today.AddDate(0, 0, -(n - i))
		candles = append(candles, Candle{
			Time:  day.Format("2006-01-02"),
			Open:  math.Max(0, open),
			High:  math.Max(0, high),
			Low:   math.Max(0, low),
			Close: math.Max(0, close),
		})
		price = close
	}

	return candles
}
