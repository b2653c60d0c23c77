// Package fees computes transaction and funding (holding) costs.
// Transaction fees are charged on notional at position open and close;
// funding accrues on notional per hour held.
package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// Config holds the fee parameters of a run.
type Config struct {
	// TradingFeeRate is charged once on open notional and once on
	// close notional, independent of direction.
	TradingFeeRate decimal.Decimal

	// HourlyFundingRate accrues on open-position notional per elapsed
	// hour.
	HourlyFundingRate decimal.Decimal

	// Leverage scales position sizing in simulation mode. It does not
	// change fee rates.
	Leverage decimal.Decimal
}

// Transaction returns notional x fee rate.
func (c Config) Transaction(notional decimal.Decimal) decimal.Decimal {
	return notional.Abs().Mul(c.TradingFeeRate)
}

// Meter tracks funding accrual for one open position. The zero value is
// idle; Start arms it at position open.
type Meter struct {
	last    time.Time
	accrued decimal.Decimal
	running bool
}

// Start arms the meter at the position's open time, clearing any
// previous accrual.
func (m *Meter) Start(t time.Time) {
	m.last = t
	m.accrued = decimal.Zero
	m.running = true
}

// Stop disarms the meter. Accrued charges remain until drained.
func (m *Meter) Stop() {
	m.running = false
}

// Running reports whether the meter is armed.
func (m *Meter) Running() bool { return m.running }

// Accrue charges funding for the interval since the last accrual
// (initially the open time): notional x hourly rate x elapsed hours.
// It returns the newly charged amount. A non-positive elapsed interval
// charges nothing and mutates nothing, so repeated calls at the same
// instant are idempotent.
func (m *Meter) Accrue(cfg Config, notional decimal.Decimal, now time.Time) decimal.Decimal {
	if !m.running || !now.After(m.last) {
		return decimal.Zero
	}

	hours := decimal.NewFromInt(now.Sub(m.last).Nanoseconds()).Div(nanosPerHour)
	charge := notional.Abs().Mul(cfg.HourlyFundingRate).Mul(hours)

	m.accrued = m.accrued.Add(charge)
	m.last = now
	return charge
}

// Accrued is the funding charged since the meter was started (or last
// drained).
func (m *Meter) Accrued() decimal.Decimal { return m.accrued }

// Drain returns the accumulated funding and resets it to zero, leaving
// the accrual clock untouched.
func (m *Meter) Drain() decimal.Decimal {
	out := m.accrued
	m.accrued = decimal.Zero
	return out
}
