package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tmarchal/marginpnl/market"
)

// LoadFills reads executed trades from a CSV file. Expected columns
// (any order, extra columns ignored):
//
//	symbol,id,order_id,price,qty,side,commission,commission_asset,time
//
// Fills are sorted by time per symbol before they are returned, since
// exchange exports are not always chronological.
func LoadFills(path string) ([]market.Fill, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadFills(rc)
}

func ReadFills(r io.Reader) ([]market.Fill, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	cols := indexColumns(header)

	col := func(name string) (int, error) {
		i, ok := cols[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return i, nil
	}

	var idx struct {
		symbol, id, orderID, price, qty, side, commission, asset, time int
	}
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{"symbol", &idx.symbol},
		{"id", &idx.id},
		{"order_id", &idx.orderID},
		{"price", &idx.price},
		{"qty", &idx.qty},
		{"side", &idx.side},
		{"commission", &idx.commission},
		{"commission_asset", &idx.asset},
		{"time", &idx.time},
	} {
		i, err := col(c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = i
	}

	var out []market.Fill
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

		var f market.Fill
		f.Symbol = strings.TrimSpace(row[idx.symbol])
		f.ID = strings.TrimSpace(row[idx.id])
		f.OrderID = strings.TrimSpace(row[idx.orderID])
		f.CommissionCurrency = strings.TrimSpace(row[idx.asset])

		if f.Price, err = parseDecimal(row[idx.price]); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if f.Quantity, err = parseDecimal(row[idx.qty]); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if f.Commission, err = parseDecimal(row[idx.commission]); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if f.Side, err = parseSide(row[idx.side]); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if f.Time, err = parseTime(row[idx.time]); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}

		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

// LoadOrders reads order metadata used to annotate closed trades.
// Expected columns: symbol,order_id,kind,group_id. A group_id of -1
// (or an empty field) marks a standalone order.
func LoadOrders(path string) ([]market.Order, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadOrders(rc)
}

func ReadOrders(r io.Reader) ([]market.Order, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	cols := indexColumns(header)

	symIdx, ok := cols["symbol"]
	if !ok {
		return nil, fmt.Errorf("%w: symbol", ErrMissingColumn)
	}
	oidIdx, ok := cols["order_id"]
	if !ok {
		return nil, fmt.Errorf("%w: order_id", ErrMissingColumn)
	}
	kindIdx, hasKind := cols["kind"]
	groupIdx, hasGroup := cols["group_id"]

	var out []market.Order
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

		o := market.Order{
			Symbol:  strings.TrimSpace(row[symIdx]),
			OrderID: strings.TrimSpace(row[oidIdx]),
			Kind:    market.KindUnknown,
			GroupID: market.StandaloneGroupID,
		}
		if hasKind {
			if k := strings.TrimSpace(row[kindIdx]); k != "" {
				o.Kind = strings.ToUpper(k)
			}
		}
		if hasGroup {
			if g := strings.TrimSpace(row[groupIdx]); g != "" {
				n, err := strconv.ParseInt(g, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("dataset: line %d: bad group_id %q: %w", line, g, err)
				}
				o.GroupID = n
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func parseSide(s string) (market.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "1":
		return market.Buy, nil
	case "SELL", "S", "-1":
		return market.Sell, nil
	default:
		return 0, fmt.Errorf("bad side %q", s)
	}
}
