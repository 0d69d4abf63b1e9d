// Package resource defines the minimal quantity-bearing payload the
// exchange machinery trades in. Concrete resource taxonomies (materials,
// products, and their units) are the caller's concern; this package only
// captures the accessor the exchange needs to reason about capacity.
package resource

// Resource is any payload with a positive quantity that can be requested,
// offered, and matched by the exchange. Implementations are supplied by
// callers; the exchange treats them as opaque beyond Quantity.
type Resource interface {
	Quantity() float64
}

// Generic is a reference Resource implementation used by tests, the demo
// CLI, and anywhere a caller doesn't need a richer resource taxonomy.
type Generic struct {
	Commodity string
	Qty       float64
}

// Quantity returns the resource's quantity.
func (g Generic) Quantity() float64 {
	return g.Qty
}
