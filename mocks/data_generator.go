package mocks

import (
	"math"
	"math/rand/v2"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// BarGenerator generates random walk bars for tests and benchmarks.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a generator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewBarGenerator(seed uint64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewPCG(seed, seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// StartTime is the time index of the first bar
	StartTime int64
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the drift over the whole series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// Digits is the number of decimals kept on prices
	Digits int32
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      0,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		Digits:         2,
	}
}

// Generate creates bars following a geometric Brownian motion.
// Every bar satisfies low <= open, close <= high.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal draw
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension

		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance

		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		openDecimal := decimal.NewFromFloat(open).Round(config.Digits)
		closeDecimal := decimal.NewFromFloat(closePrice).Round(config.Digits)

		bars[i] = types.Bar{
			Open:   openDecimal,
			High:   decimal.Max(decimal.NewFromFloat(high).Round(config.Digits), openDecimal, closeDecimal),
			Low:    decimal.Min(decimal.NewFromFloat(low).Round(config.Digits), openDecimal, closeDecimal),
			Close:  closeDecimal,
			Volume: int64(math.Round(volume)),
			Time:   config.StartTime + int64(i),
		}

		currentPrice = closePrice
	}

	return bars
}

// Generate10K generates 10,000 bars with default settings for benchmarking.
func Generate10K() []types.Bar {
	gen := NewBarGenerator(42)
	config := DefaultConfig()
	config.Count = 10000

	return gen.Generate(config)
}
