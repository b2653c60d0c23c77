package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents OHLCV (Open, High, Low, Close, Volume) candlestick data.
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Validate reports whether the candle can be fed to the engine.
// High/Low must bracket a positive price range.
func (c Candle) Validate() error {
	if c.Time.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidCandle)
	}
	for _, p := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
	} {
		if !p.v.IsPositive() {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidCandle, p.name, p.v)
		}
	}
	if c.High.LessThan(c.Low) {
		return fmt.Errorf("%w: high %s below low %s", ErrInvalidCandle, c.High, c.Low)
	}
	if c.Volume.IsNegative() {
		return fmt.Errorf("%w: negative volume %s", ErrInvalidCandle, c.Volume)
	}
	return nil
}
