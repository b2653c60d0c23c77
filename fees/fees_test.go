package fees

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	cfg := Config{TradingFeeRate: dec("0.001")}

	tests := []struct {
		name     string
		notional string
		expected string
	}{
		{"simple", "1000", "1"},
		{"negative_notional_uses_magnitude", "-1000", "1"},
		{"zero", "0", "0"},
		{"fractional", "123.45", "0.12345"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := cfg.Transaction(dec(tt.notional))
			assert.True(t, got.Equal(dec(tt.expected)), "got %s want %s", got, tt.expected)
		})
	}
}

func TestMeterAccrueTenHours(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0001")}
	open := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var m Meter
	m.Start(open)

	// 1000 notional x 0.0001/h x 10h = 1.
	charge := m.Accrue(cfg, dec("1000"), open.Add(10*time.Hour))
	assert.True(t, charge.Equal(dec("1")), "charge %s", charge)
	assert.True(t, m.Accrued().Equal(dec("1")))
}

func TestMeterAccrueIsIdempotentAtSameInstant(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0001")}
	open := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := open.Add(2 * time.Hour)

	var m Meter
	m.Start(open)

	first := m.Accrue(cfg, dec("500"), now)
	second := m.Accrue(cfg, dec("500"), now)

	assert.True(t, first.Equal(dec("0.1")), "first %s", first)
	assert.True(t, second.IsZero(), "second accrual at same instant must charge nothing")
	assert.True(t, m.Accrued().Equal(dec("0.1")))
}

func TestMeterAccrueIgnoresEarlierTimestamp(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0001")}
	open := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var m Meter
	m.Start(open)

	charge := m.Accrue(cfg, dec("1000"), open.Add(-time.Hour))
	assert.True(t, charge.IsZero())
	assert.True(t, m.Accrued().IsZero())
}

func TestMeterAccruesIncrementally(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0002")}
	open := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var m Meter
	m.Start(open)

	m.Accrue(cfg, dec("1000"), open.Add(30*time.Minute))
	m.Accrue(cfg, dec("1000"), open.Add(90*time.Minute))

	// 1000 x 0.0002 x 1.5h = 0.3 total, in two half-and-one-hour steps.
	assert.True(t, m.Accrued().Equal(dec("0.3")), "accrued %s", m.Accrued())
}

func TestMeterDrainResetsAccrualOnly(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0001")}
	open := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var m Meter
	m.Start(open)
	m.Accrue(cfg, dec("1000"), open.Add(time.Hour))

	got := m.Drain()
	assert.True(t, got.Equal(dec("0.1")))
	assert.True(t, m.Accrued().IsZero())
	assert.True(t, m.Running())

	// The clock keeps its place: the next hour accrues exactly one more
	// hour of funding, not two.
	m.Accrue(cfg, dec("1000"), open.Add(2*time.Hour))
	assert.True(t, m.Accrued().Equal(dec("0.1")))
}

func TestIdleMeterChargesNothing(t *testing.T) {
	t.Parallel()

	cfg := Config{HourlyFundingRate: dec("0.0001")}

	var m Meter
	charge := m.Accrue(cfg, dec("1000"), time.Now())
	assert.True(t, charge.IsZero())
	assert.False(t, m.Running())
}
