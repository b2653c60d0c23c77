package dataset

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchal/marginpnl/market"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReadCandles(t *testing.T) {
	t.Parallel()

	csv := `open_time,open,high,low,close,volume
1704067200000,100,110,95,105,12.5
1704070800000,105,106,101,102,3
`
	candles, err := ReadCandles(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, candles, 2)

	c := candles[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), c.Time)
	assert.True(t, c.Open.Equal(dec("100")))
	assert.True(t, c.High.Equal(dec("110")))
	assert.True(t, c.Low.Equal(dec("95")))
	assert.True(t, c.Close.Equal(dec("105")))
	assert.True(t, c.Volume.Equal(dec("12.5")))

	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), candles[1].Time)
}

func TestReadCandlesColumnAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		csv  string
	}{
		{
			"textual_date",
			"date,open,high,low,close\n2024-01-01 00:00:00,1,2,0.5,1.5\n",
		},
		{
			"rfc3339_time",
			"time,open,high,low,close\n2024-01-01T00:00:00Z,1,2,0.5,1.5\n",
		},
		{
			"unix_seconds_timestamp",
			"timestamp,open,high,low,close\n1704067200,1,2,0.5,1.5\n",
		},
		{
			"uppercase_headers",
			"Timestamp,Open,High,Low,Close\n1704067200,1,2,0.5,1.5\n",
		},
		{
			"extra_columns_ignored",
			"time,open,high,low,close,quote_volume,trades\n2024-01-01T00:00:00Z,1,2,0.5,1.5,9,9\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			candles, err := ReadCandles(strings.NewReader(tt.csv))
			require.NoError(t, err)
			require.Len(t, candles, 1)
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Time)
			assert.True(t, candles[0].Close.Equal(dec("1.5")))
		})
	}
}

func TestReadCandlesMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ReadCandles(strings.NewReader("open,high,low,close\n1,2,0.5,1.5\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadCandles(strings.NewReader("time,open,high,low\n2024-01-01T00:00:00Z,1,2,0.5\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadCandlesInvalidRowRejected(t *testing.T) {
	t.Parallel()

	// High below low fails candle validation with the line number.
	csv := "time,open,high,low,close\n2024-01-01T00:00:00Z,1,0.5,2,1.5\n"
	_, err := ReadCandles(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvalidCandle)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadCandlesGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "candles.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("time,open,high,low,close\n2024-01-01T00:00:00Z,1,2,0.5,1.5\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	candles, err := LoadCandles(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Close.Equal(dec("1.5")))
}

func TestResample(t *testing.T) {
	t.Parallel()

	mk := func(min int, open, high, low, close, vol string) market.Candle {
		return market.Candle{
			Time:   time.Date(2024, 1, 1, 0, min, 0, 0, time.UTC),
			Open:   dec(open),
			High:   dec(high),
			Low:    dec(low),
			Close:  dec(close),
			Volume: dec(vol),
		}
	}

	in := []market.Candle{
		mk(0, "100", "105", "99", "103", "1"),
		mk(15, "103", "110", "102", "108", "2"),
		mk(30, "108", "109", "90", "95", "3"),
		mk(45, "95", "97", "94", "96", "4"),
		mk(60, "96", "98", "95", "97", "5"),
	}

	out, err := Resample(in, time.Hour)
	require.NoError(t, err)
	require.Len(t, out, 2)

	h0 := out[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), h0.Time)
	assert.True(t, h0.Open.Equal(dec("100")), "first open")
	assert.True(t, h0.High.Equal(dec("110")), "max high")
	assert.True(t, h0.Low.Equal(dec("90")), "min low")
	assert.True(t, h0.Close.Equal(dec("96")), "last close")
	assert.True(t, h0.Volume.Equal(dec("10")), "summed volume")

	h1 := out[1]
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), h1.Time)
	assert.True(t, h1.Close.Equal(dec("97")))
}

func TestResampleEmptyAndInvalidWidth(t *testing.T) {
	t.Parallel()

	out, err := Resample(nil, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = Resample([]market.Candle{{}}, 0)
	require.Error(t, err)
}
