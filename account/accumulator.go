// Package account drives the FIFO ledger and fee model across an
// ordered fill stream, producing closed-trade records and a realized
// equity curve. An Accumulator owns all of its run state; independent
// runs never share anything, so callers may compute symbols or
// backtests in parallel with one Accumulator each.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarchal/marginpnl/fees"
	"github.com/tmarchal/marginpnl/ledger"
	"github.com/tmarchal/marginpnl/market"
)

// ErrOutOfOrder reports a fill whose timestamp precedes an already
// processed fill. The engine never sorts or deduplicates input.
var ErrOutOfOrder = errors.New("fills out of order")

// Config parameterizes one accounting run.
type Config struct {
	Fees fees.Config

	// InitialCapital seeds the wallet. Zero is fine when only relative
	// PnL matters (e.g. analyzing exchange history).
	InitialCapital decimal.Decimal

	// QuoteAssets maps symbol -> quote asset. A fill's commission is
	// deducted only when its currency equals the symbol's quote asset;
	// commissions in other assets are ignored, not converted.
	QuoteAssets map[string]string
}

// ClosedTrade is the realized outcome of matching one incoming fill
// against existing opposite lots.
type ClosedTrade struct {
	Symbol    string
	FillID    string // the closing fill
	OrderID   string
	Direction string // "long" or "short": the side that was closed

	Quantity   decimal.Decimal // matched magnitude
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice decimal.Decimal // matched-notional weighted average
	ExitPrice  decimal.Decimal

	GrossPnL    decimal.Decimal
	TradingFees decimal.Decimal
	FundingFees decimal.Decimal
	Commission  decimal.Decimal
	NetPnL      decimal.Decimal
	Wallet      decimal.Decimal // wallet value after this close

	OrderKind  string // annotated after the run; UNKNOWN otherwise
	OrderGroup string // SIMPLE or OCO
}

// EquityPoint is one step of the realized equity curve: cumulative net
// PnL across all symbols, one point per closed trade.
type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// Result bundles the output of a run.
type Result struct {
	Trades []ClosedTrade
	Equity []EquityPoint

	Wallet           decimal.Decimal
	TotalTradingFees decimal.Decimal
	TotalFundingFees decimal.Decimal
}

// position is the per-symbol accounting state.
type position struct {
	book  *ledger.Book
	meter fees.Meter

	// pendingCommission holds quote-asset commissions charged on fills
	// that only opened lots; it is folded into the next closed trade
	// so no cost is dropped.
	pendingCommission decimal.Decimal
}

type Accumulator struct {
	cfg Config

	wallet     decimal.Decimal
	cumulative decimal.Decimal
	positions  map[string]*position
	trades     []ClosedTrade
	equity     []EquityPoint
	lastTime   time.Time

	totalTrading decimal.Decimal
	totalFunding decimal.Decimal
}

func New(cfg Config) *Accumulator {
	return &Accumulator{
		cfg:       cfg,
		wallet:    cfg.InitialCapital,
		positions: make(map[string]*position),
	}
}

// Wallet is the current cash value: initial capital plus realized PnL
// net of all fees charged so far.
func (a *Accumulator) Wallet() decimal.Decimal { return a.wallet }

// NetPosition returns the signed open quantity for a symbol.
func (a *Accumulator) NetPosition(symbol string) decimal.Decimal {
	if p, ok := a.positions[symbol]; ok {
		return p.book.NetQty()
	}
	return decimal.Zero
}

func (a *Accumulator) position(symbol string) *position {
	p, ok := a.positions[symbol]
	if !ok {
		p = &position{book: ledger.NewBook(symbol)}
		a.positions[symbol] = p
	}
	return p
}

// AccrueFunding charges holding costs on the symbol's open position up
// to now, using the given mark price for notional. Safe to call every
// candle; a non-positive elapsed interval is a no-op.
func (a *Accumulator) AccrueFunding(symbol string, price decimal.Decimal, now time.Time) {
	p, ok := a.positions[symbol]
	if !ok || !p.meter.Running() {
		return
	}
	notional := p.book.NetQty().Abs().Mul(price)
	charge := p.meter.Accrue(a.cfg.Fees, notional, now)
	a.wallet = a.wallet.Sub(charge)
	a.totalFunding = a.totalFunding.Add(charge)
}

// Push processes one fill. Fills must arrive in non-decreasing
// timestamp order; the caller owns ordering and deduplication.
func (a *Accumulator) Push(f market.Fill) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Time.Before(a.lastTime) {
		return fmt.Errorf("%w: fill %s at %s after %s",
			ErrOutOfOrder, f.ID, f.Time.Format(time.RFC3339Nano), a.lastTime.Format(time.RFC3339Nano))
	}
	a.lastTime = f.Time

	pos := a.position(f.Symbol)

	// Funding accrues up to this event before the position changes.
	a.AccrueFunding(f.Symbol, f.Price, f.Time)

	m, err := pos.book.Apply(f.SignedQty(), f.Price, f.Time)
	if err != nil {
		return err
	}

	commission := decimal.Zero
	if quote, ok := a.cfg.QuoteAssets[f.Symbol]; ok && quote == f.CommissionCurrency {
		commission = f.Commission
		a.wallet = a.wallet.Sub(commission)
	}

	var funding decimal.Decimal
	if m.Matched.IsPositive() {
		funding = pos.meter.Drain()
	}

	// Whatever remains opens a new lot: charge the open-side fee now.
	if !m.Leftover.IsZero() {
		openNotional := m.Leftover.Abs().Mul(f.Price)
		openFee := a.cfg.Fees.Transaction(openNotional)
		a.wallet = a.wallet.Sub(openFee)
		a.totalTrading = a.totalTrading.Add(openFee)

		if m.Matched.IsPositive() || !pos.meter.Running() {
			// fresh position or a flip: restart the funding clock
			pos.meter.Start(f.Time)
		}
	} else if pos.book.Lots() == 0 {
		pos.meter.Stop()
	}

	if m.Matched.IsPositive() {
		a.close(pos, f, m, commission, funding)
	} else if commission.IsPositive() {
		pos.pendingCommission = pos.pendingCommission.Add(commission)
	}

	return nil
}

// close books the realized portion of a fill as a ClosedTrade and
// extends the equity curve.
func (a *Accumulator) close(pos *position, f market.Fill, m ledger.Match, commission, funding decimal.Decimal) {
	exitNotional := m.Matched.Mul(f.Price)
	exitFee := a.cfg.Fees.Transaction(exitNotional)
	entryFee := a.cfg.Fees.Transaction(m.EntryNotional)

	a.wallet = a.wallet.Add(m.Gross).Sub(exitFee)
	a.totalTrading = a.totalTrading.Add(exitFee)

	commission = commission.Add(pos.pendingCommission)
	pos.pendingCommission = decimal.Zero

	tradingFees := entryFee.Add(exitFee)
	net := m.Gross.Sub(tradingFees).Sub(funding).Sub(commission)
	a.cumulative = a.cumulative.Add(net)

	direction := "long"
	if m.ClosedSide < 0 {
		direction = "short"
	}

	a.trades = append(a.trades, ClosedTrade{
		Symbol:      f.Symbol,
		FillID:      f.ID,
		OrderID:     f.OrderID,
		Direction:   direction,
		Quantity:    m.Matched,
		EntryTime:   m.EntryTime,
		ExitTime:    f.Time,
		EntryPrice:  m.EntryNotional.Div(m.Matched),
		ExitPrice:   f.Price,
		GrossPnL:    m.Gross,
		TradingFees: tradingFees,
		FundingFees: funding,
		Commission:  commission,
		NetPnL:      net,
		Wallet:      a.wallet,
		OrderKind:   market.KindUnknown,
		OrderGroup:  market.GroupStandalone,
	})
	a.equity = append(a.equity, EquityPoint{Time: f.Time, Equity: a.cumulative})
}

// Finalize annotates trades with order metadata and returns the run's
// output. Missing metadata keys are tagged UNKNOWN/SIMPLE, which is
// expected, not an error.
func (a *Accumulator) Finalize(orders map[market.OrderKey]market.Order) Result {
	for i := range a.trades {
		t := &a.trades[i]
		o, ok := orders[market.OrderKey{Symbol: t.Symbol, OrderID: t.OrderID}]
		if !ok {
			continue
		}
		if o.Kind != "" {
			t.OrderKind = o.Kind
		}
		t.OrderGroup = o.Group()
	}

	return Result{
		Trades:           a.trades,
		Equity:           a.equity,
		Wallet:           a.wallet,
		TotalTradingFees: a.totalTrading,
		TotalFundingFees: a.totalFunding,
	}
}

// Process is the one-shot form: a pure function of (fills, orders,
// config). Fills must already be ordered by timestamp; per-symbol
// ledgers stay independent throughout the pass and the equity curve
// comes out merged in time order.
func Process(fills []market.Fill, orders []market.Order, cfg Config) (Result, error) {
	acc := New(cfg)
	for _, f := range fills {
		if err := acc.Push(f); err != nil {
			return Result{}, err
		}
	}
	return acc.Finalize(market.OrderIndex(orders)), nil
}
