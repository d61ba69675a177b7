package pricefeed

import "math/rand"

// SimulatedFeed serves a fixed reference price and a random-walk candle
// history generated once at construction. It is the default, fully offline
// price source.
type SimulatedFeed struct {
	price   float64
	candles []Candle
}

// ensure SimulatedFeed implements the interface
var _ Feed = (*SimulatedFeed)(nil)

// NewSimulatedFeed builds a feed around the given reference price with a
// candle history of the requested length. The RNG is injectable so tests can
// seed it.
func NewSimulatedFeed(referencePrice float64, candleCount int, rng *rand.Rand) *SimulatedFeed {
	return &SimulatedFeed{
		price:   referencePrice,
		candles: randomWalk(referencePrice, candleCount, rng),
	}
}

// CurrentPrice returns the fixed reference price.
func (f *SimulatedFeed) CurrentPrice() float64 {
	return f.price
}

// Candles returns the generated chart history.
func (f *SimulatedFeed) Candles() []Candle {
	return f.candles
}
