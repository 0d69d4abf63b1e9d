package exchange

import "github.com/gidden/cyclus/pkg/resource"

// TranslationContext records the mapping tables translation builds
// while turning a Context into a Graph, so a solved flow's arcs can be
// projected back to the (request, bid) pairs they represent, and so
// converters can resolve a request from the arc they're invoked on.
type TranslationContext[T resource.Resource] struct {
	nodeToRequest map[*ExchangeNode]*Request[T]
	requestToNode map[*Request[T]]*ExchangeNode
	nodeToBid     map[*ExchangeNode]*Bid[T]
	bidToNode     map[*Bid[T]]*ExchangeNode
}

func newTranslationContext[T resource.Resource]() *TranslationContext[T] {
	return &TranslationContext[T]{
		nodeToRequest: make(map[*ExchangeNode]*Request[T]),
		requestToNode: make(map[*Request[T]]*ExchangeNode),
		nodeToBid:     make(map[*ExchangeNode]*Bid[T]),
		bidToNode:     make(map[*Bid[T]]*ExchangeNode),
	}
}

// RequestOf returns the request node n was created for, if n is a
// request node.
func (tc *TranslationContext[T]) RequestOf(n *ExchangeNode) (*Request[T], bool) {
	r, ok := tc.nodeToRequest[n]
	return r, ok
}

// BidOf returns the bid node n was created for, if n is a bid node.
func (tc *TranslationContext[T]) BidOf(n *ExchangeNode) (*Bid[T], bool) {
	b, ok := tc.nodeToBid[n]
	return b, ok
}

// Translate builds an ExchangeGraph from ctx:
//
//  1. Each request portfolio becomes a RequestGroup carrying the
//     portfolio's Qty and one aggregate capacity per constraint; each
//     request in it becomes an ExchangeNode in that group.
//  2. Each bid portfolio becomes a SupplyGroup, symmetrically.
//  3. Each bid creates an Arc to the node of the request it targets;
//     every constraint on either side contributes one entry to the
//     corresponding endpoint's unit-capacity vector for that arc, and
//     the arc records the frozen trader preference for the pairing.
func Translate[T resource.Resource](ctx *Context[T]) (*Graph, *TranslationContext[T], error) {
	g := NewGraph()
	tc := newTranslationContext[T]()

	for _, rp := range ctx.RequestPortfolios {
		group := NewRequestGroup(rp.Qty)
		for _, c := range rp.Constraints() {
			group.addCapacity(c.Capacity)
		}
		for _, r := range rp.Requests() {
			n := newExchangeNode(r.ID(), group, r.Target.Quantity())
			group.addNode(n)
			tc.nodeToRequest[n] = r
			tc.requestToNode[r] = n
		}
		g.AddRequestGroup(group)
	}

	for _, bp := range ctx.BidPortfolios {
		group := NewSupplyGroup()
		for _, c := range bp.Constraints() {
			group.addCapacity(c.Capacity)
		}
		for _, b := range bp.Bids() {
			n := newExchangeNode(b.ID(), group, b.Offer.Quantity())
			group.addNode(n)
			tc.nodeToBid[n] = b
			tc.bidToNode[b] = n
		}
		g.AddSupplyGroup(group)
	}

	for _, bp := range ctx.BidPortfolios {
		for _, b := range bp.Bids() {
			req := b.Request
			unode, ok := tc.requestToNode[req]
			if !ok {
				return nil, nil, NewLookupError("bid %d targets a request not present in this exchange round", b.ID())
			}
			vnode := tc.bidToNode[b]

			arc := &Arc{UNode: unode, VNode: vnode, Preference: preferenceFor(ctx, req, b)}
			if err := g.AddArc(arc); err != nil {
				return nil, nil, err
			}

			for _, c := range req.portfolio.Constraints() {
				uc, err := c.Converter.Convert(req.Target, arc, tc)
				if err != nil {
					return nil, nil, err
				}
				unode.appendUnitCapacity(arc, uc)
			}
			for _, c := range bp.Constraints() {
				vc, err := c.Converter.Convert(b.Offer, arc, tc)
				if err != nil {
					return nil, nil, err
				}
				vnode.appendUnitCapacity(arc, vc)
			}
		}
	}

	return g, tc, nil
}

func preferenceFor[T resource.Resource](ctx *Context[T], req *Request[T], b *Bid[T]) float64 {
	pt, ok := ctx.traderPrefs[req.Requester.ID()]
	if !ok {
		return req.Preference
	}
	bt, ok := pt[req]
	if !ok {
		return req.Preference
	}
	pref, ok := bt[b]
	if !ok {
		return req.Preference
	}
	return pref
}
