package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func at(h int) time.Time {
	return time.Date(2026, 1, 1, h, 0, 0, 0, time.UTC)
}

func TestApplyFIFOOrder(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")

	_, err := b.Apply(dec("5"), dec("100"), at(0))
	require.NoError(t, err)
	_, err = b.Apply(dec("5"), dec("110"), at(1))
	require.NoError(t, err)

	// Selling 7 consumes the whole 5@100 lot and 2 of the 5@110 lot:
	// 7*120 - (5*100 + 2*110) = 840 - 720 = 120.
	m, err := b.Apply(dec("-7"), dec("120"), at(2))
	require.NoError(t, err)

	assert.True(t, m.Gross.Equal(dec("120")), "gross %s", m.Gross)
	assert.True(t, m.Matched.Equal(dec("7")))
	assert.True(t, m.EntryNotional.Equal(dec("720")))
	assert.Equal(t, at(0), m.EntryTime)
	assert.True(t, m.Leftover.IsZero())
	assert.Equal(t, +1, m.ClosedSide)

	assert.True(t, b.NetQty().Equal(dec("3")))
	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.True(t, oldest.Qty.Equal(dec("3")))
	assert.True(t, oldest.Price.Equal(dec("110")))
}

func TestApplyFlipLongToShort(t *testing.T) {
	t.Parallel()

	b := NewBook("ETHUSDT")

	_, err := b.Apply(dec("10"), dec("100"), at(0))
	require.NoError(t, err)

	m, err := b.Apply(dec("-15"), dec("110"), at(1))
	require.NoError(t, err)

	assert.True(t, m.Gross.Equal(dec("100")), "gross %s", m.Gross)
	assert.True(t, m.Matched.Equal(dec("10")))
	assert.True(t, m.Leftover.Equal(dec("-5")))

	assert.True(t, b.NetQty().Equal(dec("-5")))
	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.True(t, oldest.Qty.Equal(dec("-5")))
	assert.True(t, oldest.Price.Equal(dec("110")))
	assert.Equal(t, at(1), oldest.OpenTime)
}

func TestApplyFlipShortToLong(t *testing.T) {
	t.Parallel()

	b := NewBook("ETHUSDT")

	_, err := b.Apply(dec("-4"), dec("200"), at(0))
	require.NoError(t, err)

	// Buying back 6 at 190 realizes (200-190)*4 = 40 and leaves 2 long.
	m, err := b.Apply(dec("6"), dec("190"), at(1))
	require.NoError(t, err)

	assert.True(t, m.Gross.Equal(dec("40")))
	assert.True(t, m.Matched.Equal(dec("4")))
	assert.True(t, m.Leftover.Equal(dec("2")))
	assert.Equal(t, -1, m.ClosedSide)
	assert.True(t, b.NetQty().Equal(dec("2")))
}

func TestApplyPartialCloseKeepsLotOpen(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")

	_, err := b.Apply(dec("10"), dec("100"), at(0))
	require.NoError(t, err)

	m, err := b.Apply(dec("-3"), dec("105"), at(1))
	require.NoError(t, err)

	assert.True(t, m.Gross.Equal(dec("15")))
	assert.Equal(t, 1, b.Lots())
	oldest, _ := b.Oldest()
	assert.True(t, oldest.Qty.Equal(dec("7")))
	assert.Equal(t, at(0), oldest.OpenTime, "partial close keeps original open time")
}

func TestApplyCloseAcrossManyLots(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")
	for i := 0; i < 5; i++ {
		_, err := b.Apply(dec("1"), decimal.NewFromInt(int64(100+i)), at(i))
		require.NoError(t, err)
	}

	// 5*110 - (100+101+102+103+104) = 550 - 510 = 40.
	m, err := b.Apply(dec("-5"), dec("110"), at(6))
	require.NoError(t, err)

	assert.True(t, m.Gross.Equal(dec("40")))
	assert.True(t, m.Matched.Equal(dec("5")))
	assert.Equal(t, at(0), m.EntryTime)
	assert.Equal(t, 0, b.Lots())
	assert.True(t, b.NetQty().IsZero())
}

func TestApplyZeroQuantityNoOp(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")
	_, err := b.Apply(dec("3"), dec("100"), at(0))
	require.NoError(t, err)

	m, err := b.Apply(decimal.Zero, dec("999"), at(1))
	require.NoError(t, err)

	assert.True(t, m.Gross.IsZero())
	assert.True(t, m.Matched.IsZero())
	assert.True(t, m.Leftover.IsZero())
	assert.Equal(t, 1, b.Lots())
	assert.True(t, b.NetQty().Equal(dec("3")))
}

func TestApplySameDirectionAppends(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")
	_, err := b.Apply(dec("-2"), dec("50"), at(0))
	require.NoError(t, err)
	m, err := b.Apply(dec("-3"), dec("55"), at(1))
	require.NoError(t, err)

	assert.True(t, m.Gross.IsZero())
	assert.True(t, m.Leftover.Equal(dec("-3")))
	assert.Equal(t, 2, b.Lots())
	assert.True(t, b.NetQty().Equal(dec("-5")))
}

func TestNetMatchesLotSumThroughRandomishSequence(t *testing.T) {
	t.Parallel()

	b := NewBook("BTCUSDT")
	seq := []string{"3", "-1", "4", "-9", "2", "0.5", "-0.25", "7", "-6.25"}
	net := decimal.Zero

	for i, q := range seq {
		qty := dec(q)
		_, err := b.Apply(qty, dec("100"), at(i))
		require.NoError(t, err)
		net = net.Add(qty)
		assert.True(t, b.NetQty().Equal(net), "step %d: net %s want %s", i, b.NetQty(), net)
	}
}
