package exchange

import "github.com/gidden/cyclus/pkg/resource"

// Converter maps an offered resource, the arc it's offered against,
// and the translation context into a nonnegative unit cost against
// one capacity constraint. Convert must be total and deterministic
// given immutable inputs, and must not retain state that outlives the
// call. Equal reports structural equality, used to deduplicate
// constraints within a portfolio; it must be conservative (unknown or
// mismatched concrete types are never equal).
type Converter[T resource.Resource] interface {
	Convert(offer T, arc *Arc, ctx *TranslationContext[T]) (float64, error)
	Equal(other Converter[T]) bool
}

// TrivialConverter is the identity converter: it ignores the arc and
// translation context and returns the offered resource's quantity
// unchanged. All TrivialConverter values are equal to each other.
type TrivialConverter[T resource.Resource] struct{}

// Convert implements Converter.
func (TrivialConverter[T]) Convert(offer T, _ *Arc, _ *TranslationContext[T]) (float64, error) {
	return offer.Quantity(), nil
}

// Equal implements Converter.
func (TrivialConverter[T]) Equal(other Converter[T]) bool {
	_, ok := other.(TrivialConverter[T])
	return ok
}

// CoeffConverter multiplies the offered quantity by a per-request
// coefficient, resolving the request through the translation
// context's node-to-request table keyed on the arc's u-node. It backs
// RequestPortfolio.AddDefaultConstraint.
type CoeffConverter[T resource.Resource] struct {
	coeffs map[*Request[T]]float64
}

// NewCoeffConverter returns a CoeffConverter over a private copy of
// coeffs, so later mutation of the caller's map cannot change an
// already-constructed converter's behavior.
func NewCoeffConverter[T resource.Resource](coeffs map[*Request[T]]float64) *CoeffConverter[T] {
	cp := make(map[*Request[T]]float64, len(coeffs))
	for r, c := range coeffs {
		cp[r] = c
	}
	return &CoeffConverter[T]{coeffs: cp}
}

// Convert implements Converter. It fails with a LookupError if ctx
// does not resolve arc's u-node to a request.
func (c *CoeffConverter[T]) Convert(offer T, arc *Arc, ctx *TranslationContext[T]) (float64, error) {
	req, ok := ctx.RequestOf(arc.UNode)
	if !ok {
		return 0, NewLookupError("coefficient converter: arc u-node does not resolve to a request in this translation context")
	}
	coeff, ok := c.coeffs[req]
	if !ok {
		coeff = 1.0
	}
	return offer.Quantity() * coeff, nil
}

// Equal implements Converter: two coefficient converters are equal
// iff their coefficient maps hold identical request/value pairs.
func (c *CoeffConverter[T]) Equal(other Converter[T]) bool {
	o, ok := other.(*CoeffConverter[T])
	if !ok || len(o.coeffs) != len(c.coeffs) {
		return false
	}
	for r, v := range c.coeffs {
		ov, ok := o.coeffs[r]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// CapacityConstraint is a domain-level statement that a portfolio can
// supply or consume at most Capacity units of Converter's output. Its
// id is minted once at construction from a simulation-scoped IDGen and
// never changes; equality (used for dedup) ignores id and compares
// only Capacity, Category, and Converter.
type CapacityConstraint[T resource.Resource] struct {
	id        int
	Capacity  float64
	Converter Converter[T]
	Category  string
}

// NewCapacityConstraint constructs a CapacityConstraint with a fresh
// id minted from ids.
func NewCapacityConstraint[T resource.Resource](ids *IDGen, capacity float64, converter Converter[T], category string) *CapacityConstraint[T] {
	return &CapacityConstraint[T]{
		id:        ids.Next(),
		Capacity:  capacity,
		Converter: converter,
		Category:  category,
	}
}

// ID returns the constraint's simulation-scoped id.
func (c *CapacityConstraint[T]) ID() int { return c.id }

// Equal reports whether c and o have the same capacity, category, and
// structurally equal converters. It ignores id, which is assigned at
// construction and carries no semantic weight for equality.
func (c *CapacityConstraint[T]) Equal(o *CapacityConstraint[T]) bool {
	if o == nil {
		return false
	}
	return c.Capacity == o.Capacity && c.Category == o.Category && c.Converter.Equal(o.Converter)
}
