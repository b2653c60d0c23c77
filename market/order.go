package market

// Order kinds and groups used when no metadata is available. Missing
// lookups during annotation are expected, never an error.
const (
	KindUnknown     = "UNKNOWN"
	GroupStandalone = "SIMPLE"
	GroupLinked     = "OCO"
)

// StandaloneGroupID marks an order that is not part of a linked set.
// Exchanges report linked (one-cancels-other) sets with a non-negative
// group id.
const StandaloneGroupID int64 = -1

// Order is optional metadata used to annotate closed trades after the
// accounting pass. It is never required for matching.
type Order struct {
	Symbol  string
	OrderID string
	Kind    string // LIMIT / MARKET / STOP_LOSS_LIMIT / ...
	GroupID int64  // StandaloneGroupID when not linked
}

// Linked reports whether the order belongs to a linked set (e.g. an
// OCO pair).
func (o Order) Linked() bool {
	return o.GroupID >= 0
}

// Group returns the grouping category used in statistics breakdowns.
func (o Order) Group() string {
	if o.Linked() {
		return GroupLinked
	}
	return GroupStandalone
}

// OrderKey identifies an order within the metadata map.
type OrderKey struct {
	Symbol  string
	OrderID string
}

// OrderIndex builds the (symbol, order id) lookup used by the
// annotation pass.
func OrderIndex(orders []Order) map[OrderKey]Order {
	idx := make(map[OrderKey]Order, len(orders))
	for _, o := range orders {
		idx[OrderKey{Symbol: o.Symbol, OrderID: o.OrderID}] = o
	}
	return idx
}
