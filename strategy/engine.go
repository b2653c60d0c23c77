// Package strategy simulates the Bollinger range/trend strategy over a
// candle stream. The engine is a two-state machine (flat or open, one
// position at a time) that emits synthetic fills into a PnL
// accumulator, so backtests flow through exactly the same ledger, fee
// and statistics pipeline as real exchange history.
package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarchal/marginpnl/account"
	"github.com/tmarchal/marginpnl/indicators"
	"github.com/tmarchal/marginpnl/market"
)

// Entry modes. Range positions carry fixed target/stop levels set from
// the bands at entry; trend positions ride the drift until it reverts
// or the opposite band is crossed.
type Mode int8

const (
	ModeRange Mode = iota
	ModeTrend
)

func (m Mode) String() string {
	if m == ModeTrend {
		return "trend"
	}
	return "range"
}

// Synthetic order kinds attached to emitted fills, so per-kind
// statistics distinguish entries from the different exit paths.
const (
	kindMarket    = "MARKET"
	kindTakeProf  = "TAKE_PROFIT"
	kindStopLoss  = "STOP_LOSS"
	kindTrendExit = "TREND_EXIT"
	kindEndOfData = "END_OF_DATA"
)

// openPosition is the OPEN state of the machine.
type openPosition struct {
	direction market.Side // Buy = long, Sell = short
	mode      Mode
	qty       decimal.Decimal
	entry     decimal.Decimal
	tp        decimal.Decimal // range mode only
	sl        decimal.Decimal // range mode only
	exitGroup int64           // linked group id of the range tp/sl pair
}

type Engine struct {
	symbol   string
	cfg      Config
	leverage decimal.Decimal
	acc      *account.Accumulator

	boll *indicators.Bollinger
	pos  *openPosition // nil while FLAT

	prevClose float64
	havePrev  bool

	orders   []market.Order
	fillSeq  int
	orderSeq int
	groupSeq int64
}

// New builds a simulation engine feeding the given accumulator.
// Leverage scales the wallet notional used for sizing; zero or negative
// means unlevered.
func New(symbol string, cfg Config, leverage decimal.Decimal, acc *account.Accumulator) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !leverage.IsPositive() {
		leverage = decimal.NewFromInt(1)
	}
	return &Engine{
		symbol:   symbol,
		cfg:      cfg,
		leverage: leverage,
		acc:      acc,
		boll:     indicators.NewBollinger(cfg.Period, cfg.BandMult),
	}, nil
}

// Orders returns the metadata of every synthetic order emitted so far,
// for the accumulator's annotation pass.
func (e *Engine) Orders() []market.Order {
	return e.orders
}

// Open reports whether a position is currently held.
func (e *Engine) Open() bool { return e.pos != nil }

// OnCandle advances the machine by one closed candle: accrue holding
// costs, evaluate exits, then evaluate entries. Entry signals on an
// incomplete indicator window are suppressed, never an error.
func (e *Engine) OnCandle(c market.Candle) error {
	if err := c.Validate(); err != nil {
		return err
	}

	// Holding costs accrue continuously while the position is open.
	e.acc.AccrueFunding(e.symbol, c.Close, c.Time)

	e.boll.Update(c)
	defer func() {
		e.prevClose, _ = c.Close.Float64()
		e.havePrev = true
	}()

	if !e.boll.Ready() {
		return nil
	}

	if e.pos != nil {
		if err := e.checkExit(c); err != nil {
			return err
		}
	}
	if e.pos == nil {
		return e.checkEntry(c)
	}
	return nil
}

// checkExit applies the exit rules of the open position's mode.
func (e *Engine) checkExit(c market.Candle) error {
	pos := e.pos

	if pos.mode == ModeRange {
		var hitTP, hitSL bool
		if pos.direction == market.Buy {
			hitTP = c.High.GreaterThanOrEqual(pos.tp)
			hitSL = c.Low.LessThanOrEqual(pos.sl)
		} else {
			hitTP = c.Low.LessThanOrEqual(pos.tp)
			hitSL = c.High.GreaterThanOrEqual(pos.sl)
		}

		if hitTP && hitSL {
			// both levels inside one candle: policy decides
			if e.cfg.TieBreak == TieBreakTakeProfit {
				hitSL = false
			} else {
				hitTP = false
			}
		}

		switch {
		case hitTP:
			return e.closePosition(c.Time, pos.tp, kindTakeProf, pos.exitGroup)
		case hitSL:
			return e.closePosition(c.Time, pos.sl, kindStopLoss, pos.exitGroup)
		}
		return nil
	}

	// trend mode: stop at the opposite outer band, target when the
	// drift reverts to flat
	trend := indicators.ClassifyTrend(e.boll, e.cfg.TrendThreshold)
	lower := decimal.NewFromFloat(e.boll.Lower())
	upper := decimal.NewFromFloat(e.boll.Upper())

	if pos.direction == market.Buy && c.Low.LessThanOrEqual(lower) {
		return e.closePosition(c.Time, lower, kindStopLoss, market.StandaloneGroupID)
	}
	if pos.direction == market.Sell && c.High.GreaterThanOrEqual(upper) {
		return e.closePosition(c.Time, upper, kindStopLoss, market.StandaloneGroupID)
	}
	if trend == indicators.TrendFlat {
		return e.closePosition(c.Time, c.Close, kindTrendExit, market.StandaloneGroupID)
	}
	return nil
}

// checkEntry evaluates entry signals while flat.
func (e *Engine) checkEntry(c market.Candle) error {
	if !e.havePrev {
		return nil
	}
	trend := indicators.ClassifyTrend(e.boll, e.cfg.TrendThreshold)
	if trend == indicators.TrendIndeterminate {
		return nil
	}
	prevMean, ok := e.boll.PrevMean()
	if !ok {
		return nil
	}

	close, _ := c.Close.Float64()
	mean := e.boll.Mean()

	crossUp := e.prevClose < prevMean && close >= mean
	crossDown := e.prevClose > prevMean && close <= mean
	if !crossUp && !crossDown {
		return nil
	}

	switch {
	case trend == indicators.TrendFlat:
		return e.enterRange(c, close)
	case trend == indicators.TrendBull && crossUp:
		return e.enterTrend(c, market.Buy)
	case trend == indicators.TrendBear && crossDown:
		return e.enterTrend(c, market.Sell)
	}
	return nil
}

func (e *Engine) enterRange(c market.Candle, close float64) error {
	tendency, ok := e.boll.TendencyPct()
	if !ok {
		return nil
	}
	direction := market.Buy
	if tendency < 0 {
		direction = market.Sell
	}

	var tp, sl float64
	if direction == market.Buy {
		tp = close + e.cfg.TPRangeRatio*(e.boll.Upper()-close)
		sl = close - e.cfg.SLRangeRatio*(close-e.boll.Lower())
	} else {
		tp = close - e.cfg.TPRangeRatio*(close-e.boll.Lower())
		sl = close + e.cfg.SLRangeRatio*(e.boll.Upper()-close)
	}

	// skip entries whose expected move is below the fee-noise floor
	expectedMovePct := abs(tp-close) / close * 100
	if expectedMovePct < e.cfg.MinTPDistancePct {
		return nil
	}
	if tp <= 0 || sl <= 0 {
		return nil
	}

	qty := e.sizePosition(c.Close)
	if !qty.IsPositive() {
		return nil
	}

	e.groupSeq++
	pos := &openPosition{
		direction: direction,
		mode:      ModeRange,
		qty:       qty,
		entry:     c.Close,
		tp:        decimal.NewFromFloat(tp),
		sl:        decimal.NewFromFloat(sl),
		exitGroup: e.groupSeq,
	}
	return e.openPosition(c, pos)
}

func (e *Engine) enterTrend(c market.Candle, direction market.Side) error {
	qty := e.sizePosition(c.Close)
	if !qty.IsPositive() {
		return nil
	}
	pos := &openPosition{
		direction: direction,
		mode:      ModeTrend,
		qty:       qty,
		entry:     c.Close,
		exitGroup: market.StandaloneGroupID,
	}
	return e.openPosition(c, pos)
}

// sizePosition commits the full wallet, scaled by leverage, at the
// given price.
func (e *Engine) sizePosition(price decimal.Decimal) decimal.Decimal {
	wallet := e.acc.Wallet()
	if !wallet.IsPositive() {
		return decimal.Zero
	}
	return wallet.Mul(e.leverage).Div(price)
}

func (e *Engine) openPosition(c market.Candle, pos *openPosition) error {
	if err := e.emit(pos.direction, pos.qty, c.Close, c.Time, kindMarket, market.StandaloneGroupID); err != nil {
		return err
	}
	e.pos = pos
	return nil
}

func (e *Engine) closePosition(t time.Time, price decimal.Decimal, kind string, group int64) error {
	pos := e.pos
	side := market.Sell
	if pos.direction == market.Sell {
		side = market.Buy
	}
	if err := e.emit(side, pos.qty, price, t, kind, group); err != nil {
		return err
	}
	e.pos = nil
	return nil
}

// emit pushes one synthetic fill through the accumulator and records
// its order metadata. Ids are sequential, so identical inputs replay to
// identical output records.
func (e *Engine) emit(side market.Side, qty, price decimal.Decimal, t time.Time, kind string, group int64) error {
	e.fillSeq++
	e.orderSeq++

	orderID := fmt.Sprintf("%s-O%06d", e.symbol, e.orderSeq)
	e.orders = append(e.orders, market.Order{
		Symbol:  e.symbol,
		OrderID: orderID,
		Kind:    kind,
		GroupID: group,
	})

	return e.acc.Push(market.Fill{
		Symbol:   e.symbol,
		ID:       fmt.Sprintf("%s-F%06d", e.symbol, e.fillSeq),
		OrderID:  orderID,
		Price:    price,
		Quantity: qty,
		Side:     side,
		Time:     t,
	})
}

// CloseOpenPosition force-closes any open position at the given price,
// typically the last candle's close at the end of a dataset.
func (e *Engine) CloseOpenPosition(price decimal.Decimal, t time.Time) error {
	if e.pos == nil {
		return nil
	}
	return e.closePosition(t, price, kindEndOfData, market.StandaloneGroupID)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
