package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarchal/marginpnl/market"
)

var ErrMissingColumn = errors.New("dataset: missing column")

// Column aliases seen across exchange exports. Matching is
// case-insensitive on the trimmed header names.
var timeAliases = []string{"open_time", "date", "time", "timestamp"}

// LoadCandles reads OHLCV rows from a CSV file. A header row is
// required; the time column may be unix seconds, unix milliseconds,
// or a textual timestamp. Rows are returned in file order.
func LoadCandles(path string) ([]market.Candle, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCandles(rc)
}

// ReadCandles is LoadCandles over an already-open stream.
func ReadCandles(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	cols := indexColumns(header)

	timeIdx := -1
	for _, alias := range timeAliases {
		if i, ok := cols[alias]; ok {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: time", ErrMissingColumn)
	}
	var idx [4]int
	for i, name := range []string{"open", "high", "low", "close"} {
		j, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = j
	}
	volIdx, hasVol := cols["volume"]

	var out []market.Candle
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		t, err := parseTime(row[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}

		var c market.Candle
		c.Time = t
		for i, dst := range []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close} {
			d, err := parseDecimal(row[idx[i]])
			if err != nil {
				return nil, fmt.Errorf("dataset: line %d: %w", line, err)
			}
			*dst = d
		}
		if hasVol {
			d, err := parseDecimal(row[volIdx])
			if err != nil {
				return nil, fmt.Errorf("dataset: line %d: %w", line, err)
			}
			c.Volume = d
		}

		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Resample aggregates candles into buckets of the given width: first
// open, max high, min low, last close, summed volume. Input must be
// in ascending time order.
func Resample(candles []market.Candle, width time.Duration) ([]market.Candle, error) {
	if width <= 0 {
		return nil, fmt.Errorf("dataset: resample width must be positive")
	}
	if len(candles) == 0 {
		return nil, nil
	}

	var out []market.Candle
	cur := market.Candle{}
	curStart := time.Time{}
	open := false

	for _, c := range candles {
		start := c.Time.Truncate(width)
		if !open || !start.Equal(curStart) {
			if open {
				out = append(out, cur)
			}
			cur = c
			cur.Time = start
			curStart = start
			open = true
			continue
		}
		if c.High.GreaterThan(cur.High) {
			cur.High = c.High
		}
		if c.Low.LessThan(cur.Low) {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume = cur.Volume.Add(c.Volume)
	}
	out = append(out, cur)
	return out, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad number %q: %w", s, err)
	}
	return d, nil
}

// parseTime accepts unix seconds, unix milliseconds, and common
// textual layouts. All times are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Unix-second stamps stay below 1e12 until year 33658.
		if n >= 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
