package pricefeed

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedFeed_CurrentPrice(t *testing.T) {
	feed := NewSimulatedFeed(85.42, 30, rand.New(rand.NewSource(1)))

	assert.Equal(t, 85.42, feed.CurrentPrice())
}

func TestSimulatedFeed_Candles(t *testing.T) {
	feed := NewSimulatedFeed(85.42, 30, rand.New(rand.NewSource(1)))

	candles := feed.Candles()
	require.Len(t, candles, 30)

	prev := ""
	for _, c := range candles {
		// Never below zero, wicks envelop the body, dates ascend.
		assert.GreaterOrEqual(t, c.Open, 0.0)
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.Greater(t, c.Time, prev)
		prev = c.Time
	}
}

func TestSimulatedFeed_DeterministicWithSeed(t *testing.T) {
	a := NewSimulatedFeed(85.42, 10, rand.New(rand.NewSource(42)))
	b := NewSimulatedFeed(85.42, 10, rand.New(rand.NewSource(42)))

	assert.Equal(t, a.Candles(), b.Candles())
}
