// Package indicators provides streaming technical indicators for the
// strategy engine. Indicators consume closed candles one at a time and
// are deterministic, so they behave identically in replays and
// backtests.
package indicators

import (
	"fmt"
	"math"

	"github.com/tmarchal/marginpnl/market"
)

// Indicator computes a single streaming value from candles.
type Indicator interface {
	// Name returns a stable identifier like "BOLL(100,2)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be
	// true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle.
	Update(c market.Candle)

	// Ready reports whether the indicator values are meaningful.
	Ready() bool
}

// Bollinger is a streaming Bollinger band: rolling mean of closes plus
// bands at mult rolling (population) standard deviations. It also
// tracks the mean's step-to-step drift for trend classification.
type Bollinger struct {
	period int
	mult   float64

	closes []float64

	mean  float64
	stdev float64

	prevMean float64
	havePrev bool
}

func NewBollinger(period int, mult float64) *Bollinger {
	return &Bollinger{
		period: period,
		mult:   mult,
		closes: make([]float64, 0, period),
	}
}

func (b *Bollinger) Name() string {
	return fmt.Sprintf("BOLL(%d,%g)", b.period, b.mult)
}

func (b *Bollinger) Warmup() int {
	// one extra bar so the tendency (mean drift) is defined
	return b.period + 1
}

func (b *Bollinger) Reset() {
	b.closes = b.closes[:0]
	b.mean = 0
	b.stdev = 0
	b.prevMean = 0
	b.havePrev = false
}

func (b *Bollinger) Update(c market.Candle) {
	if b.Ready() {
		b.prevMean = b.mean
		b.havePrev = true
	}

	close, _ := c.Close.Float64()
	b.closes = append(b.closes, close)
	if len(b.closes) > b.period {
		b.closes = b.closes[1:]
	}

	if !b.Ready() {
		return
	}

	var sum float64
	for _, v := range b.closes {
		sum += v
	}
	b.mean = sum / float64(len(b.closes))

	var sq float64
	for _, v := range b.closes {
		sq += (v - b.mean) * (v - b.mean)
	}
	b.stdev = math.Sqrt(sq / float64(len(b.closes)))
}

func (b *Bollinger) Ready() bool {
	return len(b.closes) >= b.period
}

func (b *Bollinger) Mean() float64  { return b.mean }
func (b *Bollinger) Stdev() float64 { return b.stdev }

func (b *Bollinger) Upper() float64 { return b.mean + b.mult*b.stdev }
func (b *Bollinger) Lower() float64 { return b.mean - b.mult*b.stdev }

// TendencyPct is the mean's last step as a percentage of the mean.
// Defined only once two consecutive ready values exist.
func (b *Bollinger) TendencyPct() (float64, bool) {
	if !b.havePrev || !b.Ready() || b.mean == 0 {
		return 0, false
	}
	return (b.mean - b.prevMean) / b.mean * 100, true
}

// PrevMean returns the mean as of the previous update.
func (b *Bollinger) PrevMean() (float64, bool) {
	return b.prevMean, b.havePrev
}
