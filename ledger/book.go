// Package ledger implements per-symbol FIFO inventory: open lots are
// kept in insertion order and matched oldest-first against incoming
// quantity, including sign flips between long and short.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInconsistent signals that the lot queue no longer sums to the
// running net position. This is an accounting defect in the engine
// itself, not a data problem, and must abort the run.
var ErrInconsistent = errors.New("ledger inconsistency")

// Lot is open inventory at its opening price. Qty is signed: positive
// for a long remainder, negative for a short remainder.
type Lot struct {
	Qty      decimal.Decimal
	Price    decimal.Decimal
	OpenTime time.Time
}

// Book holds a symbol's ordered lot queue. Insertion order is the FIFO
// priority; price never breaks ties.
type Book struct {
	symbol string
	lots   []*Lot
	net    decimal.Decimal // running sum of signed applied quantities
}

func NewBook(symbol string) *Book {
	return &Book{symbol: symbol}
}

func (b *Book) Symbol() string { return b.symbol }

// NetQty is the signed net position: the sum of all lot quantities.
func (b *Book) NetQty() decimal.Decimal { return b.net }

// Lots returns the number of open lots.
func (b *Book) Lots() int { return len(b.lots) }

// Oldest returns a copy of the front lot, if any.
func (b *Book) Oldest() (Lot, bool) {
	if len(b.lots) == 0 {
		return Lot{}, false
	}
	return *b.lots[0], true
}

// Match is the realized outcome of applying one signed quantity.
type Match struct {
	// Gross is the realized price PnL over the matched portion:
	// (exit - entry) per unit for closed longs, (entry - exit) for
	// closed shorts.
	Gross decimal.Decimal

	// Matched is the unsigned quantity closed against existing lots.
	Matched decimal.Decimal

	// EntryNotional is the sum of matched quantity x lot price over
	// the consumed lots, used for fee proration and weighted entry
	// price.
	EntryNotional decimal.Decimal

	// EntryTime is the open time of the oldest lot touched.
	EntryTime time.Time

	// Leftover is the signed remainder that opened a new lot after
	// matching (zero if the fill was fully absorbed).
	Leftover decimal.Decimal

	// ClosedSide is +1 when long lots were closed, -1 when short lots
	// were closed, 0 when nothing matched.
	ClosedSide int
}

// Apply matches one incoming signed quantity at the given price against
// the book, oldest lot first. A fill can close several small opposite
// lots in one call and still open a new lot with its remainder (a
// flip). A zero quantity is a no-op.
func (b *Book) Apply(qty, price decimal.Decimal, t time.Time) (Match, error) {
	var m Match
	if qty.IsZero() {
		return m, nil
	}

	expected := b.net.Add(qty)
	remaining := qty

	for len(b.lots) > 0 && !remaining.IsZero() && oppositeSigns(b.lots[0].Qty, remaining) {
		lot := b.lots[0]

		matchQty := decimal.Min(lot.Qty.Abs(), remaining.Abs())

		if lot.Qty.IsPositive() {
			// closing a long: incoming quantity is a sell
			m.Gross = m.Gross.Add(price.Sub(lot.Price).Mul(matchQty))
			m.ClosedSide = +1
		} else {
			// closing a short: incoming quantity is a buy-back
			m.Gross = m.Gross.Add(lot.Price.Sub(price).Mul(matchQty))
			m.ClosedSide = -1
		}

		if m.Matched.IsZero() {
			m.EntryTime = lot.OpenTime
		}
		m.Matched = m.Matched.Add(matchQty)
		m.EntryNotional = m.EntryNotional.Add(matchQty.Mul(lot.Price))

		lot.Qty = lot.Qty.Sub(matchQty.Mul(signOf(lot.Qty)))
		remaining = remaining.Sub(matchQty.Mul(signOf(remaining)))

		if lot.Qty.IsZero() {
			b.lots = b.lots[1:]
		}
	}

	if !remaining.IsZero() {
		b.lots = append(b.lots, &Lot{Qty: remaining, Price: price, OpenTime: t})
		m.Leftover = remaining
	}

	b.net = expected

	if err := b.check(); err != nil {
		return m, err
	}
	return m, nil
}

// check asserts the FIFO invariant: the queue's total signed quantity
// equals the running net position.
func (b *Book) check() error {
	total := decimal.Zero
	for _, lot := range b.lots {
		total = total.Add(lot.Qty)
	}
	if !total.Equal(b.net) {
		return fmt.Errorf("%w: symbol %s: lot total %s != net position %s",
			ErrInconsistent, b.symbol, total, b.net)
	}
	return nil
}

func oppositeSigns(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsNegative()) || (a.IsNegative() && b.IsPositive())
}

func signOf(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}
