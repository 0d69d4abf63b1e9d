package exchange

import (
	"fmt"
	"sort"

	"github.com/gidden/cyclus/pkg/resource"
)

// Request is one line item of a RequestPortfolio: a target resource a
// requester wants filled, tagged with a commodity label the exchange
// uses to solicit bids. Its preference is mutable only up to the
// moment the exchange translates the round into a graph; callers must
// not retain a Request past the round that produced it.
type Request[T resource.Resource] struct {
	id         int
	Target     T
	Requester  Trader
	Commodity  string
	Preference float64
	Exclusive  bool
	portfolio  *RequestPortfolio[T]
}

// ID returns the request's simulation-scoped id.
func (r *Request[T]) ID() int { return r.id }

// Portfolio returns the portfolio that owns this request.
func (r *Request[T]) Portfolio() *RequestPortfolio[T] { return r.portfolio }

func (r *Request[T]) String() string {
	return fmt.Sprintf("Request#%d{commodity=%s, requester=%d, qty=%v}",
		r.id, r.Commodity, r.Requester.ID(), r.Target.Quantity())
}

// Bid is one line item of a BidPortfolio: a resource a bidder offers
// against a specific outstanding Request.
type Bid[T resource.Resource] struct {
	id        int
	Offer     T
	Bidder    Trader
	Request   *Request[T]
	Exclusive bool
	portfolio *BidPortfolio[T]
}

// ID returns the bid's simulation-scoped id.
func (b *Bid[T]) ID() int { return b.id }

// Portfolio returns the portfolio that owns this bid.
func (b *Bid[T]) Portfolio() *BidPortfolio[T] { return b.portfolio }

func (b *Bid[T]) String() string {
	return fmt.Sprintf("Bid#%d{bidder=%d, request=%d, qty=%v}",
		b.id, b.Bidder.ID(), b.Request.ID(), b.Offer.Quantity())
}

// RequestPortfolio is an ordered bundle of requests from a single
// requester, all sharing the same target quantity (the portfolio's
// demand Qty), plus the capacity constraints that bound how the
// requester can accept supply against them.
type RequestPortfolio[T resource.Resource] struct {
	Requester Trader
	Qty       float64

	requests    []*Request[T]
	constraints []*CapacityConstraint[T]
	coeffs      map[*Request[T]]float64
	ids         *IDGen
	seeded      bool
}

// NewRequestPortfolio returns an empty RequestPortfolio that mints
// request and constraint ids from ids.
func NewRequestPortfolio[T resource.Resource](ids *IDGen) *RequestPortfolio[T] {
	return &RequestPortfolio[T]{
		coeffs: make(map[*Request[T]]float64),
		ids:    ids,
	}
}

// Requests returns the portfolio's requests in insertion order.
func (p *RequestPortfolio[T]) Requests() []*Request[T] { return p.requests }

// Constraints returns the portfolio's capacity constraints in
// insertion order.
func (p *RequestPortfolio[T]) Constraints() []*CapacityConstraint[T] { return p.constraints }

// Coefficients returns the portfolio's current request->coefficient
// map, used by the default mass constraint.
func (p *RequestPortfolio[T]) Coefficients() map[*Request[T]]float64 { return p.coeffs }

// AddRequest constructs a Request from target/requester/commodity and
// appends it to the portfolio. The first request seeds the
// portfolio's requester and Qty; every subsequent request must match
// both, or AddRequest fails with a KeyError and the portfolio is left
// unchanged.
func (p *RequestPortfolio[T]) AddRequest(target T, requester Trader, commodity string, preference float64, exclusive bool) (*Request[T], error) {
	if requester == nil {
		return nil, NewKeyError("request requester must not be nil")
	}
	if !p.seeded {
		p.Requester = requester
		p.Qty = target.Quantity()
		p.seeded = true
	} else {
		if requester.ID() != p.Requester.ID() {
			return nil, NewKeyError("requester mismatch: portfolio requester %d, got %d", p.Requester.ID(), requester.ID())
		}
		if target.Quantity() != p.Qty {
			return nil, NewKeyError("quantity mismatch: portfolio qty %v, got %v", p.Qty, target.Quantity())
		}
	}

	r := &Request[T]{
		id:         p.ids.Next(),
		Target:     target,
		Requester:  requester,
		Commodity:  commodity,
		Preference: preference,
		Exclusive:  exclusive,
		portfolio:  p,
	}
	p.requests = append(p.requests, r)
	p.coeffs[r] = 1.0
	return r, nil
}

// AddMutualReqs renormalizes the coefficients of subset so that each
// request's coefficient equals its quantity divided by the mean
// quantity across subset, marking the subset as mutually satisfying
// (any one request in it being filled satisfies the group). Callable
// multiple times with disjoint subsets; a later call overwrites the
// coefficients of any request it shares with an earlier call.
func (p *RequestPortfolio[T]) AddMutualReqs(subset []*Request[T]) {
	if len(subset) == 0 {
		return
	}
	var sum float64
	for _, r := range subset {
		sum += r.Target.Quantity()
	}
	mean := sum / float64(len(subset))
	if mean == 0 {
		return
	}
	for _, r := range subset {
		p.coeffs[r] = r.Target.Quantity() / mean
	}
}

// AddConstraint inserts c into the portfolio's constraint set,
// deduplicated by CapacityConstraint equality.
func (p *RequestPortfolio[T]) AddConstraint(c *CapacityConstraint[T]) {
	for _, existing := range p.constraints {
		if existing.Equal(c) {
			return
		}
	}
	p.constraints = append(p.constraints, c)
}

// AddDefaultConstraint creates a capacity constraint whose capacity is
// the portfolio's Qty and whose converter is a coefficient converter
// built from the portfolio's current coefficient map, then inserts
// it. Qty here is the shared per-request quantity, not the sum across
// requests: for a mutually-satisfying subset (see AddMutualReqs) this
// is exactly the right cap, since any one request's fulfillment
// already satisfies the group; for a portfolio whose requests are
// meant to be filled independently and simultaneously, this same Qty
// reading is an under-constraint. Callers wanting the stricter cap
// should add their own constraint instead.
func (p *RequestPortfolio[T]) AddDefaultConstraint() {
	snapshot := make(map[*Request[T]]float64, len(p.coeffs))
	for r, c := range p.coeffs {
		snapshot[r] = c
	}
	conv := NewCoeffConverter(snapshot)
	c := NewCapacityConstraint(p.ids, p.Qty, conv, "default-mass")
	p.AddConstraint(c)
}

// BidPortfolio is an unordered bundle of bids from a single bidder,
// plus the capacity constraints bounding how much the bidder can
// supply and the set of commodities its bids cover.
type BidPortfolio[T resource.Resource] struct {
	Bidder Trader

	bids        map[*Bid[T]]struct{}
	constraints []*CapacityConstraint[T]
	commodities map[string]struct{}
	ids         *IDGen
}

// NewBidPortfolio returns an empty BidPortfolio that mints bid and
// constraint ids from ids.
func NewBidPortfolio[T resource.Resource](ids *IDGen) *BidPortfolio[T] {
	return &BidPortfolio[T]{
		bids:        make(map[*Bid[T]]struct{}),
		commodities: make(map[string]struct{}),
		ids:         ids,
	}
}

// AddBid constructs a Bid against request and adds it to the
// portfolio's bid set. The first bid seeds the portfolio's bidder;
// every subsequent bid must share it, or AddBid fails with a KeyError.
func (p *BidPortfolio[T]) AddBid(offer T, bidder Trader, request *Request[T], exclusive bool) (*Bid[T], error) {
	if bidder == nil {
		return nil, NewKeyError("bid bidder must not be nil")
	}
	if request == nil {
		return nil, NewKeyError("bid request must not be nil")
	}
	if p.Bidder == nil {
		p.Bidder = bidder
	} else if bidder.ID() != p.Bidder.ID() {
		return nil, NewKeyError("bidder mismatch: portfolio bidder %d, got %d", p.Bidder.ID(), bidder.ID())
	}

	b := &Bid[T]{
		id:        p.ids.Next(),
		Offer:     offer,
		Bidder:    bidder,
		Request:   request,
		Exclusive: exclusive,
		portfolio: p,
	}
	p.bids[b] = struct{}{}
	p.commodities[request.Commodity] = struct{}{}
	return b, nil
}

// Bids returns the portfolio's bids, ordered by id for deterministic
// iteration over the underlying unordered set.
func (p *BidPortfolio[T]) Bids() []*Bid[T] {
	out := make([]*Bid[T], 0, len(p.bids))
	for b := range p.bids {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Commodities returns the sorted set of commodities this portfolio's
// bids cover.
func (p *BidPortfolio[T]) Commodities() []string {
	out := make([]string, 0, len(p.commodities))
	for c := range p.commodities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Constraints returns the portfolio's capacity constraints in
// insertion order.
func (p *BidPortfolio[T]) Constraints() []*CapacityConstraint[T] { return p.constraints }

// AddConstraint inserts c into the portfolio's constraint set,
// deduplicated by CapacityConstraint equality.
func (p *BidPortfolio[T]) AddConstraint(c *CapacityConstraint[T]) {
	for _, existing := range p.constraints {
		if existing.Equal(c) {
			return
		}
	}
	p.constraints = append(p.constraints, c)
}
