package exchange

import (
	"sort"

	"github.com/gidden/cyclus/pkg/resource"
)

// Context aggregates request and bid portfolios across every trader
// participating in one resource kind's exchange round: it indexes
// requests by commodity for bid solicitation, indexes bids by the
// request they target for back-translation, and seeds the per-trader
// preference tables each requester may adjust before translation.
type Context[T resource.Resource] struct {
	RequestPortfolios []*RequestPortfolio[T]
	BidPortfolios     []*BidPortfolio[T]

	requesters     map[int]Trader
	bidders        map[int]Trader
	commodRequests map[string][]*Request[T]
	bidsByRequest  map[*Request[T]][]*Bid[T]
	traderPrefs    map[int]PrefTable[T]

	ids *IDGen
}

// NewContext returns an empty Context that mints ids from ids.
func NewContext[T resource.Resource](ids *IDGen) *Context[T] {
	return &Context[T]{
		requesters:     make(map[int]Trader),
		bidders:        make(map[int]Trader),
		commodRequests: make(map[string][]*Request[T]),
		bidsByRequest:  make(map[*Request[T]][]*Bid[T]),
		traderPrefs:    make(map[int]PrefTable[T]),
		ids:            ids,
	}
}

// IDGen returns the context's id generator, so portfolios constructed
// for this round can mint ids from the same simulation-scoped source.
func (c *Context[T]) IDGen() *IDGen { return c.ids }

// AddRequestPortfolio appends p to the context's requests, indexing
// its requester and, per request, its commodity.
func (c *Context[T]) AddRequestPortfolio(p *RequestPortfolio[T]) {
	c.RequestPortfolios = append(c.RequestPortfolios, p)
	if p.Requester != nil {
		c.requesters[p.Requester.ID()] = p.Requester
	}
	for _, r := range p.Requests() {
		c.commodRequests[r.Commodity] = append(c.commodRequests[r.Commodity], r)
	}
}

// AddBidPortfolio appends p to the context's bids, indexing its
// bidder, its bids by targeted request, and seeding trader_prefs for
// each targeted request's requester with the request's own stated
// preference.
func (c *Context[T]) AddBidPortfolio(p *BidPortfolio[T]) {
	c.BidPortfolios = append(c.BidPortfolios, p)
	if p.Bidder != nil {
		c.bidders[p.Bidder.ID()] = p.Bidder
	}
	for _, b := range p.Bids() {
		req := b.Request
		c.bidsByRequest[req] = append(c.bidsByRequest[req], b)

		requester := req.Requester
		pt, ok := c.traderPrefs[requester.ID()]
		if !ok {
			pt = make(PrefTable[T])
			c.traderPrefs[requester.ID()] = pt
		}
		bt, ok := pt[req]
		if !ok {
			bt = make(map[*Bid[T]]float64)
			pt[req] = bt
		}
		bt[b] = req.Preference
	}
}

// Requesters returns every distinct requester seen so far, ordered by
// trader id for deterministic iteration.
func (c *Context[T]) Requesters() []Trader { return sortedTraders(c.requesters) }

// Bidders returns every distinct bidder seen so far, ordered by
// trader id for deterministic iteration.
func (c *Context[T]) Bidders() []Trader { return sortedTraders(c.bidders) }

// Commodities returns the sorted set of commodities with at least one
// outstanding request.
func (c *Context[T]) Commodities() []string {
	out := make([]string, 0, len(c.commodRequests))
	for k := range c.commodRequests {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CommodityRequests returns the requests outstanding for commodity, in
// the order their portfolios were added.
func (c *Context[T]) CommodityRequests(commodity string) []*Request[T] {
	return c.commodRequests[commodity]
}

// BidsFor returns the bids targeting r, in the order their portfolios
// were added.
func (c *Context[T]) BidsFor(r *Request[T]) []*Bid[T] { return c.bidsByRequest[r] }

// PrefsFor returns trader's mutable view of trader_prefs[trader]: for
// each request trader made, the preference recorded against each bid
// on that request. Returns an empty, non-nil table if trader made no
// requests with outstanding bids.
func (c *Context[T]) PrefsFor(trader Trader) PrefTable[T] {
	pt, ok := c.traderPrefs[trader.ID()]
	if !ok {
		pt = make(PrefTable[T])
		c.traderPrefs[trader.ID()] = pt
	}
	return pt
}

func sortedTraders(m map[int]Trader) []Trader {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Trader, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
