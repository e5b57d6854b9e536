package indicator

import (
	"errors"
	"fmt"
	"math"

	"CoinPulse/internal/domain/models"
)

// ErrInsufficientData is returned when the price history is shorter
// than the configured period requires. Callers must not fabricate
// indicator values from partial windows.
var ErrInsufficientData = errors.New("indicator: insufficient data")

// ComputeError reports malformed input to the engine (negative or
// non-finite prices).
type ComputeError struct {
	Reason string
	Index  int
	Value  float64
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("indicator: %s at index %d (value %v)", e.Reason, e.Index, e.Value)
}

// Config holds indicator periods and signal thresholds.
type Config struct {
	RSIPeriod           int
	BandPeriod          int
	BandStdDev          float64
	OverboughtThreshold float64
	OversoldThreshold   float64
}

// Engine computes the indicator bundle from an ordered price history.
// All methods are pure.
type Engine struct {
	cfg Config
}

// New creates an indicator engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Required returns the minimum history length for a full bundle.
func (e *Engine) Required() int {
	n := e.cfg.RSIPeriod + 1
	if e.cfg.BandPeriod > n {
		n = e.cfg.BandPeriod
	}
	return n
}

// Compute derives the full indicator bundle from prices ordered oldest
// to newest. Returns ErrInsufficientData when the series is too short
// and *ComputeError when any price is negative or non-finite.
func (e *Engine) Compute(prices []float64) (*models.Indicators, error) {
	if len(prices) < e.Required() {
		return nil, ErrInsufficientData
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	rsi, err := e.RSI(prices)
	if err != nil {
		return nil, err
	}

	upper, middle, lower, err := e.Bands(prices)
	if err != nil {
		return nil, err
	}

	return &models.Indicators{
		RSI:        rsi,
		RSIPeriod:  e.cfg.RSIPeriod,
		BandUpper:  upper,
		BandMiddle: middle,
		BandLower:  lower,
		BandPeriod: e.cfg.BandPeriod,
		BandStdDev: e.cfg.BandStdDev,
		Signal:     e.Signal(rsi),
	}, nil
}

// RSI computes the relative strength index over the most recent
// RSIPeriod deltas. When the window holds no losses the value
// saturates at 100.
func (e *Engine) RSI(prices []float64) (float64, error) {
	p := e.cfg.RSIPeriod
	if len(prices) < p+1 {
		return 0, ErrInsufficientData
	}

	window := prices[len(prices)-p-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(p)
	avgLoss := losses / float64(p)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// Bands computes Bollinger-style bands over the most recent BandPeriod
// prices: simple moving average plus/minus BandStdDev population
// standard deviations.
func (e *Engine) Bands(prices []float64) (upper, middle, lower float64, err error) {
	p := e.cfg.BandPeriod
	if len(prices) < p {
		return 0, 0, 0, ErrInsufficientData
	}

	window := prices[len(prices)-p:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	middle = sum / float64(p)

	var variance float64
	for _, v := range window {
		d := v - middle
		variance += d * d
	}
	variance /= float64(p)
	sigma := math.Sqrt(variance)

	upper = middle + e.cfg.BandStdDev*sigma
	lower = middle - e.cfg.BandStdDev*sigma
	return upper, middle, lower, nil
}

// Signal maps an oscillator value to its tri-state classification.
// Thresholds come from configuration, never constants.
func (e *Engine) Signal(rsi float64) models.SignalState {
	switch {
	case rsi > e.cfg.OverboughtThreshold:
		return models.SignalOverbought
	case rsi < e.cfg.OversoldThreshold:
		return models.SignalOversold
	default:
		return models.SignalNeutral
	}
}

func validatePrices(prices []float64) error {
	for i, v := range prices {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ComputeError{Reason: "non-finite price", Index: i, Value: v}
		}
		if v < 0 {
			return &ComputeError{Reason: "negative price", Index: i, Value: v}
		}
	}
	return nil
}
