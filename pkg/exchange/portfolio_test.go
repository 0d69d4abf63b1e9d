package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidden/cyclus/pkg/resource"
)

type fakeTrader struct{ id int }

func (f fakeTrader) ID() int { return f.id }

func TestRequestPortfolio_AddRequest_SeedsRequesterAndQty(t *testing.T) {
	// GIVEN an empty request portfolio
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	trader := fakeTrader{id: 1}

	// WHEN the first request is added
	r1, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0.5, false)

	// THEN it seeds the portfolio's requester and qty, and sets a default coefficient
	require.NoError(t, err)
	assert.Equal(t, 1, rp.Requester.ID())
	assert.Equal(t, 10.0, rp.Qty)
	assert.Equal(t, 1.0, rp.Coefficients()[r1])
}

func TestRequestPortfolio_AddRequest_RejectsMismatchedRequester(t *testing.T) {
	// GIVEN a portfolio seeded by trader 1
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	_, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, fakeTrader{id: 1}, "u235", 0, false)
	require.NoError(t, err)

	// WHEN a second request from a different requester is added
	_, err = rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, fakeTrader{id: 2}, "u235", 0, false)

	// THEN it fails with a key error and the portfolio is unchanged
	require.Error(t, err)
	var kerr *KeyError
	assert.ErrorAs(t, err, &kerr)
	assert.Len(t, rp.Requests(), 1)
}

func TestRequestPortfolio_AddRequest_RejectsMismatchedQuantity(t *testing.T) {
	// GIVEN a portfolio seeded at qty=10
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	trader := fakeTrader{id: 1}
	_, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	require.NoError(t, err)

	// WHEN a second request with a different quantity is added
	_, err = rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 5}, trader, "u235", 0, false)

	// THEN it fails with a key error
	require.Error(t, err)
	var kerr *KeyError
	assert.ErrorAs(t, err, &kerr)
}

func TestRequestPortfolio_AddRequest_RejectsNilRequester(t *testing.T) {
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	_, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, nil, "u235", 0, false)
	require.Error(t, err)
	var kerr *KeyError
	assert.ErrorAs(t, err, &kerr)
}

func TestRequestPortfolio_AddMutualReqs_RenormalizesToQtyOverMean(t *testing.T) {
	// GIVEN a portfolio with two equal-quantity requests
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	trader := fakeTrader{id: 1}
	r1, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	require.NoError(t, err)
	r2, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	require.NoError(t, err)

	// WHEN they are declared mutually satisfying
	rp.AddMutualReqs([]*Request[resource.Generic]{r1, r2})

	// THEN each coefficient becomes qty/mean = 1.0
	assert.Equal(t, 1.0, rp.Coefficients()[r1])
	assert.Equal(t, 1.0, rp.Coefficients()[r2])
}

func TestRequestPortfolio_AddMutualReqs_LaterCallOverwritesOverlap(t *testing.T) {
	// GIVEN a portfolio with three requests (the portfolio invariant
	// holds them all to the same quantity)
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	trader := fakeTrader{id: 1}
	r1, _ := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	r2, _ := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	r3, _ := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)

	// WHEN two overlapping mutual subsets are declared
	rp.AddMutualReqs([]*Request[resource.Generic]{r1, r2})
	rp.AddMutualReqs([]*Request[resource.Generic]{r2, r3})

	// THEN the later call's coefficient wins for the shared request
	assert.Equal(t, 1.0, rp.Coefficients()[r1])
	assert.Equal(t, 1.0, rp.Coefficients()[r2])
	assert.Equal(t, 1.0, rp.Coefficients()[r3])
}

func TestRequestPortfolio_AddConstraint_Deduplicates(t *testing.T) {
	// GIVEN a portfolio and two structurally equal constraints
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	c1 := NewCapacityConstraint[resource.Generic](ids, 5, TrivialConverter[resource.Generic]{}, "mass")
	c2 := NewCapacityConstraint[resource.Generic](ids, 5, TrivialConverter[resource.Generic]{}, "mass")

	// WHEN both are added
	rp.AddConstraint(c1)
	rp.AddConstraint(c2)

	// THEN only one survives (dedup by CapacityConstraint equality)
	assert.Len(t, rp.Constraints(), 1)
}

func TestRequestPortfolio_AddDefaultConstraint_UsesPortfolioQty(t *testing.T) {
	// GIVEN a seeded portfolio with qty=10 and two requests
	ids := NewIDGen()
	rp := NewRequestPortfolio[resource.Generic](ids)
	trader := fakeTrader{id: 1}
	_, err := rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	require.NoError(t, err)
	_, err = rp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, trader, "u235", 0, false)
	require.NoError(t, err)

	// WHEN a default constraint is added
	rp.AddDefaultConstraint()

	// THEN its capacity equals the portfolio's qty, not the sum over requests
	require.Len(t, rp.Constraints(), 1)
	assert.Equal(t, 10.0, rp.Constraints()[0].Capacity)
	assert.Equal(t, "default-mass", rp.Constraints()[0].Category)
}

func TestBidPortfolio_AddBid_RejectsMismatchedBidder(t *testing.T) {
	// GIVEN a bid portfolio seeded by bidder 1
	ids := NewIDGen()
	rqp := NewRequestPortfolio[resource.Generic](ids)
	req, _ := rqp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, fakeTrader{id: 9}, "u235", 0, false)
	bp := NewBidPortfolio[resource.Generic](ids)
	_, err := bp.AddBid(resource.Generic{Commodity: "u235", Qty: 5}, fakeTrader{id: 1}, req, false)
	require.NoError(t, err)

	// WHEN a bid from a different bidder is added
	_, err = bp.AddBid(resource.Generic{Commodity: "u235", Qty: 5}, fakeTrader{id: 2}, req, false)

	// THEN it fails with a key error
	require.Error(t, err)
	var kerr *KeyError
	assert.ErrorAs(t, err, &kerr)
}

func TestBidPortfolio_AddBid_RejectsNilRequest(t *testing.T) {
	ids := NewIDGen()
	bp := NewBidPortfolio[resource.Generic](ids)
	_, err := bp.AddBid(resource.Generic{Commodity: "u235", Qty: 5}, fakeTrader{id: 1}, nil, false)
	require.Error(t, err)
}

func TestBidPortfolio_Bids_OrderedByID(t *testing.T) {
	// GIVEN a bid portfolio with two bids added against one request
	ids := NewIDGen()
	rqp := NewRequestPortfolio[resource.Generic](ids)
	req, _ := rqp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, fakeTrader{id: 9}, "u235", 0, false)
	bp := NewBidPortfolio[resource.Generic](ids)
	b1, _ := bp.AddBid(resource.Generic{Commodity: "u235", Qty: 1}, fakeTrader{id: 1}, req, false)
	b2, _ := bp.AddBid(resource.Generic{Commodity: "u235", Qty: 1}, fakeTrader{id: 1}, req, false)

	// WHEN Bids is read repeatedly
	got1 := bp.Bids()
	got2 := bp.Bids()

	// THEN it is deterministically ordered by id on every call
	assert.Equal(t, []*Bid[resource.Generic]{b1, b2}, got1)
	assert.Equal(t, got1, got2)
}

func TestBidPortfolio_Commodities_SortedAndDeduplicated(t *testing.T) {
	ids := NewIDGen()
	rqp := NewRequestPortfolio[resource.Generic](ids)
	ru, _ := rqp.AddRequest(resource.Generic{Commodity: "u235", Qty: 10}, fakeTrader{id: 9}, "u235", 0, false)
	rp, _ := rqp.AddRequest(resource.Generic{Commodity: "pu239", Qty: 10}, fakeTrader{id: 9}, "pu239", 0, false)

	bp := NewBidPortfolio[resource.Generic](ids)
	_, _ = bp.AddBid(resource.Generic{Commodity: "u235", Qty: 1}, fakeTrader{id: 1}, ru, false)
	_, _ = bp.AddBid(resource.Generic{Commodity: "pu239", Qty: 1}, fakeTrader{id: 1}, rp, false)
	_, _ = bp.AddBid(resource.Generic{Commodity: "u235", Qty: 1}, fakeTrader{id: 1}, ru, false)

	assert.Equal(t, []string{"pu239", "u235"}, bp.Commodities())
}
