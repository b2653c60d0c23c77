package indicators

// Trend classifies the drift of the rolling mean.
type Trend int8

const (
	// TrendIndeterminate means the indicator window is incomplete.
	// Strategy entries are suppressed, never errored, in this state.
	TrendIndeterminate Trend = iota
	TrendFlat
	TrendBull
	TrendBear
)

func (t Trend) String() string {
	switch t {
	case TrendFlat:
		return "flat"
	case TrendBull:
		return "bull"
	case TrendBear:
		return "bear"
	default:
		return "indet"
	}
}

// ClassifyTrend buckets the mean drift percentage against a symmetric
// threshold: at or above +threshold is bull, at or below -threshold is
// bear, anything between is flat.
func ClassifyTrend(b *Bollinger, threshold float64) Trend {
	pct, ok := b.TendencyPct()
	if !ok {
		return TrendIndeterminate
	}
	switch {
	case pct >= threshold:
		return TrendBull
	case pct <= -threshold:
		return TrendBear
	default:
		return TrendFlat
	}
}
