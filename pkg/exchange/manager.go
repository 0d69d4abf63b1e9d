package exchange

import "github.com/gidden/cyclus/pkg/resource"

// Trade is a settled match, back-translated from the graph's arc/qty
// pair into the domain-level request and bid it satisfies.
type Trade[T resource.Resource] struct {
	Request *Request[T]
	Bid     *Bid[T]
	Qty     float64
}

// Manager drives one resource kind's Dynamic Resource Exchange
// end-to-end: gather portfolios from every registered trader,
// translate them into a graph, hand the graph's partition to a
// Solver, and back-translate the resulting matches into trades
// delivered to the traders that made them.
type Manager[T resource.Resource] struct {
	ids     *IDGen
	solver  Solver
	traders []RequestBidder[T]
}

// NewManager returns a Manager that mints ids from ids and solves
// translated graphs with solver.
func NewManager[T resource.Resource](ids *IDGen, solver Solver) *Manager[T] {
	return &Manager[T]{ids: ids, solver: solver}
}

// Register adds t to the set of traders this manager solicits
// portfolios from every round.
func (m *Manager[T]) Register(t RequestBidder[T]) {
	m.traders = append(m.traders, t)
}

// RunRound executes one full DRE round — collect requests, solicit
// bids per commodity, adjust preferences, translate, solve, and apply
// the settled trades back to their traders — and returns the trades it
// settled. An empty, non-nil slice with a nil error means
// the round ran to completion with no feasible matches — a normal
// outcome of an over-constrained market, not a failure.
func (m *Manager[T]) RunRound() ([]Trade[T], error) {
	ctx := NewContext[T](m.ids)

	for _, t := range m.traders {
		for _, p := range t.GetRequestPortfolios(ctx) {
			ctx.AddRequestPortfolio(p)
		}
	}

	for _, commodity := range ctx.Commodities() {
		requests := ctx.CommodityRequests(commodity)
		for _, t := range m.traders {
			for _, p := range t.GetBidPortfolios(commodity, requests) {
				ctx.AddBidPortfolio(p)
			}
		}
	}

	for _, t := range m.traders {
		t.AdjustPreferences(ctx.PrefsFor(t))
	}

	graph, tc, err := Translate(ctx)
	if err != nil {
		return nil, err
	}

	subgraphs := graph.Partition()
	rawMatches, err := m.solver.Solve(subgraphs)
	if err != nil {
		return nil, err
	}

	trades := make([]Trade[T], 0, len(rawMatches))
	for _, match := range rawMatches {
		if err := graph.AddMatch(match.Arc, match.Qty); err != nil {
			return nil, err
		}
		req, ok := tc.RequestOf(match.Arc.UNode)
		if !ok {
			return nil, NewLookupError("solved arc's u-node does not resolve to a request")
		}
		bid, ok := tc.BidOf(match.Arc.VNode)
		if !ok {
			return nil, NewLookupError("solved arc's v-node does not resolve to a bid")
		}
		trades = append(trades, Trade[T]{Request: req, Bid: bid, Qty: match.Qty})
	}

	for _, tr := range trades {
		if rb, ok := tr.Request.Requester.(RequestBidder[T]); ok {
			rb.ApplyTrade(tr.Request, tr.Bid, tr.Qty)
		}
		if rb, ok := tr.Bid.Bidder.(RequestBidder[T]); ok {
			rb.ApplyTrade(tr.Request, tr.Bid, tr.Qty)
		}
	}

	return trades, nil
}

// Round is the kind-erased entry point the scheduler drives once per
// resource kind per tick, so kernel.Timer doesn't need to be generic
// over every resource kind's payload type.
type Round interface {
	// Kind returns the resource kind's declared name, used to label
	// metrics and event-fan-out topics.
	Kind() string
	// Run executes one exchange round and returns the number of
	// trades it settled.
	Run() (int, error)
}

type roundAdapter[T resource.Resource] struct {
	kind string
	mgr  *Manager[T]
}

func (r *roundAdapter[T]) Kind() string { return r.kind }

func (r *roundAdapter[T]) Run() (int, error) {
	trades, err := r.mgr.RunRound()
	if err != nil {
		return 0, err
	}
	return len(trades), nil
}

// NewRound wraps mgr as a Round declared under the given resource
// kind name.
func NewRound[T resource.Resource](kind string, mgr *Manager[T]) Round {
	return &roundAdapter[T]{kind: kind, mgr: mgr}
}
