// Package market defines the domain records the accounting engine
// consumes and produces: fills, orders and candles. All monetary values
// are decimals; the engine never touches binary floats for money.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidFill   = errors.New("invalid fill")
	ErrInvalidCandle = errors.New("invalid candle")
)

// Side is the taker side of a fill.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Fill is one executed trade, either fetched from exchange history or
// synthesized by the strategy engine. Quantity is always a positive
// magnitude; Side carries the direction. Fills are immutable once
// ingested.
type Fill struct {
	Symbol             string
	ID                 string
	OrderID            string
	Price              decimal.Decimal
	Quantity           decimal.Decimal
	Side               Side
	Commission         decimal.Decimal
	CommissionCurrency string
	Time               time.Time
}

// SignedQty translates Side into a signed quantity: positive for buys,
// negative for sells.
func (f Fill) SignedQty() decimal.Decimal {
	if f.Side == Sell {
		return f.Quantity.Neg()
	}
	return f.Quantity
}

// Notional is |quantity| x price.
func (f Fill) Notional() decimal.Decimal {
	return f.Quantity.Abs().Mul(f.Price)
}

// Validate checks the fields the engine requires. Cleaning and
// filtering of raw exchange records belongs upstream; anything that
// reaches the engine malformed is an error, not a skip.
func (f Fill) Validate() error {
	if f.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidFill)
	}
	if f.ID == "" {
		return fmt.Errorf("%w: empty fill id (symbol %s)", ErrInvalidFill, f.Symbol)
	}
	if f.Side != Buy && f.Side != Sell {
		return fmt.Errorf("%w: fill %s has no side", ErrInvalidFill, f.ID)
	}
	if !f.Price.IsPositive() {
		return fmt.Errorf("%w: fill %s price %s", ErrInvalidFill, f.ID, f.Price)
	}
	if !f.Quantity.IsPositive() {
		return fmt.Errorf("%w: fill %s quantity %s", ErrInvalidFill, f.ID, f.Quantity)
	}
	if f.Commission.IsNegative() {
		return fmt.Errorf("%w: fill %s negative commission %s", ErrInvalidFill, f.ID, f.Commission)
	}
	if f.Time.IsZero() {
		return fmt.Errorf("%w: fill %s zero timestamp", ErrInvalidFill, f.ID)
	}
	return nil
}
