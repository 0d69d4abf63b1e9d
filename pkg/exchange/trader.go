package exchange

import "github.com/gidden/cyclus/pkg/resource"

// Trader is a stable-identity agent-side participant that produces
// request and bid portfolios and receives the trades the exchange
// settles on its behalf. The exchange treats a Trader as a black box:
// it never inspects anything about a Trader beyond its ID and the
// callbacks below.
type Trader interface {
	// ID returns the trader's stable integer identity, used to key
	// preference maps and to detect self-trades upstream of this
	// package.
	ID() int
}

// RequestBidder is implemented by a Trader that participates in a
// resource kind's Dynamic Resource Exchange. Split from Trader so a
// participant that only requests (or only bids) doesn't need to stub
// out the other half.
type RequestBidder[T resource.Resource] interface {
	Trader

	// GetRequestPortfolios returns zero or more request portfolios this
	// trader wants filled this round. Called once per round, during
	// request collection.
	GetRequestPortfolios(ctx *Context[T]) []*RequestPortfolio[T]

	// GetBidPortfolios returns zero or more bid portfolios responding to
	// the given commodity's outstanding requests. Called once per
	// commodity that has at least one outstanding request this round;
	// a trader with nothing to offer for that commodity returns nil.
	GetBidPortfolios(commodity string, requests []*Request[T]) []*BidPortfolio[T]

	// AdjustPreferences is called once per round, after all bids have
	// been collected, with this trader's slice of the preference table
	// (request -> bid -> preference) for requests it made. The trader
	// may mutate the map in place; after this call returns, preferences
	// are frozen for translation.
	AdjustPreferences(prefs PrefTable[T])

	// ApplyTrade delivers one settled match to the trader that made the
	// winning request and, symmetrically, is also called on the bidder
	// whose bid was matched.
	ApplyTrade(req *Request[T], bid *Bid[T], qty float64)
}

// PrefTable is one trader's view of trader_prefs[trader]: for each of
// its own requests, the preference recorded against each bid on that
// request.
type PrefTable[T resource.Resource] map[*Request[T]]map[*Bid[T]]float64
