package strategy

import "fmt"

// TieBreak decides the exit when a candle breaches both the take-profit
// and the stop-loss levels in the same step. This is a deliberate
// policy choice, not an incidental default: the pessimistic stop-first
// reading understates results, the optimistic take-first reading
// reproduces exchange-optimistic assumptions.
type TieBreak int8

const (
	// TieBreakStopLoss resolves same-candle conflicts to the stop
	// (worst case for the trader). This is the default.
	TieBreakStopLoss TieBreak = iota

	// TieBreakTakeProfit resolves same-candle conflicts to the target.
	TieBreakTakeProfit
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakTakeProfit:
		return "take-profit"
	default:
		return "stop-loss"
	}
}

// Config holds the range/trend strategy parameters.
type Config struct {
	// Period is the rolling window for the mean and bands.
	Period int

	// BandMult is the number of standard deviations between the mean
	// and each outer band.
	BandMult float64

	// TrendThreshold (percent) separates flat from bull/bear drift of
	// the rolling mean.
	TrendThreshold float64

	// TPRangeRatio places the range-mode target this fraction of the
	// way from the entry price to the outer band.
	TPRangeRatio float64

	// SLRangeRatio places the range-mode stop this multiple of the
	// distance from the entry price to the opposite band.
	SLRangeRatio float64

	// MinTPDistancePct suppresses range entries whose target sits
	// closer than this percentage of the entry price.
	MinTPDistancePct float64

	// TieBreak resolves candles that touch both levels at once.
	TieBreak TieBreak
}

// Default mirrors the parameters the strategy was researched with.
func Default() Config {
	return Config{
		Period:           100,
		BandMult:         2,
		TrendThreshold:   0.3,
		TPRangeRatio:     0.75,
		SLRangeRatio:     1.1,
		MinTPDistancePct: 0.75,
		TieBreak:         TieBreakStopLoss,
	}
}

func (c Config) Validate() error {
	if c.Period < 2 {
		return fmt.Errorf("strategy: period must be at least 2, got %d", c.Period)
	}
	if c.BandMult <= 0 {
		return fmt.Errorf("strategy: band multiplier must be positive, got %g", c.BandMult)
	}
	if c.TrendThreshold < 0 {
		return fmt.Errorf("strategy: trend threshold must be non-negative, got %g", c.TrendThreshold)
	}
	if c.TPRangeRatio <= 0 || c.TPRangeRatio > 1 {
		return fmt.Errorf("strategy: tp range ratio must be in (0, 1], got %g", c.TPRangeRatio)
	}
	if c.SLRangeRatio <= 0 {
		return fmt.Errorf("strategy: sl range ratio must be positive, got %g", c.SLRangeRatio)
	}
	if c.MinTPDistancePct < 0 {
		return fmt.Errorf("strategy: min tp distance must be non-negative, got %g", c.MinTPDistancePct)
	}
	if c.TieBreak != TieBreakStopLoss && c.TieBreak != TieBreakTakeProfit {
		return fmt.Errorf("strategy: unknown tie-break policy %d", c.TieBreak)
	}
	return nil
}
