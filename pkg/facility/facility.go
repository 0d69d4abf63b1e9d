// Package facility provides the reference trader/agent implementation
// the demo CLI builds a topology from. It is deliberately generic
// rather than a material- or product-specific model: each Facility
// plays either a Requester or a Producer role against a single
// commodity, exercising the kernel.Agent, kernel.TimeListener, and
// exchange.RequestBidder boundaries the core package treats as
// external collaborators.
package facility

import (
	"github.com/sirupsen/logrus"

	"github.com/gidden/cyclus/pkg/exchange"
	"github.com/gidden/cyclus/pkg/kernel"
	"github.com/gidden/cyclus/pkg/resource"
)

// Role distinguishes the two demo trader shapes.
type Role string

const (
	// Requester wants Quantity units of Commodity filled every tick.
	Requester Role = "requester"
	// Producer offers Quantity units of Commodity against every
	// outstanding request for it every tick, capped in aggregate at
	// Capacity (zero means uncapped).
	Producer Role = "producer"
)

// Config describes one Facility's fixed behavior, loaded from the
// demo CLI's YAML topology.
type Config struct {
	ID         int
	Role       Role
	Kind       string
	Commodity  string
	Quantity   float64
	Capacity   float64
	Preference float64
}

// Facility is the reference agent: a single-commodity requester or
// producer that replays the same portfolio shape every tick. It keeps
// its own running trade tally so the demo CLI has something to report
// at Finish.
type Facility struct {
	cfg    Config
	ids    *exchange.IDGen
	parent kernel.Agent

	TradesSettled int
	QtyTraded     float64
}

// New returns a Facility honoring cfg, minting portfolio/request/bid
// ids from ids — the same simulation-scoped generator the facility's
// exchange.Context uses, so a re-run simulation produces identical id
// sequences.
func New(cfg Config, ids *exchange.IDGen) *Facility {
	return &Facility{cfg: cfg, ids: ids}
}

// ID implements kernel.TimeListener and exchange.Trader.
func (f *Facility) ID() int { return f.cfg.ID }

// Kind returns the resource kind this facility trades under.
func (f *Facility) Kind() string { return f.cfg.Kind }

// Tick implements kernel.TimeListener. The demo facility has no
// per-tick side effects of its own; all of its behavior is expressed
// through the exchange callbacks the scheduler drives between Tick
// and Tock.
func (f *Facility) Tick() {}

// Tock implements kernel.TimeListener.
func (f *Facility) Tock() {}

// Build implements kernel.Agent.
func (f *Facility) Build(parent kernel.Agent) { f.parent = parent }

// BuildNotify implements kernel.Agent. Demo facilities never spawn
// children.
func (f *Facility) BuildNotify(kernel.Agent) {}

// Decommission implements kernel.Agent.
func (f *Facility) Decommission() {
	logrus.WithField("facility", f.cfg.ID).Info("facility: decommissioned")
}

// DecomNotify implements kernel.Agent.
func (f *Facility) DecomNotify(kernel.Agent) {}

// Parent implements kernel.Agent.
func (f *Facility) Parent() (kernel.Agent, bool) { return f.parent, f.parent != nil }

// GetRequestPortfolios implements exchange.RequestBidder. Only a
// Requester facility returns anything: one portfolio with a single
// request for Quantity units of Commodity.
func (f *Facility) GetRequestPortfolios(_ *exchange.Context[resource.Generic]) []*exchange.RequestPortfolio[resource.Generic] {
	if f.cfg.Role != Requester {
		return nil
	}
	rp := exchange.NewRequestPortfolio[resource.Generic](f.ids)
	target := resource.Generic{Commodity: f.cfg.Commodity, Qty: f.cfg.Quantity}
	if _, err := rp.AddRequest(target, f, f.cfg.Commodity, f.cfg.Preference, false); err != nil {
		logrus.WithError(err).WithField("facility", f.cfg.ID).Error("facility: failed to add request")
		return nil
	}
	return []*exchange.RequestPortfolio[resource.Generic]{rp}
}

// GetBidPortfolios implements exchange.RequestBidder. Only a Producer
// facility bids, and only against its own commodity: it offers
// Quantity units against every outstanding request, bounded in
// aggregate by Capacity (via a trivial-converter constraint) when
// Capacity is positive.
func (f *Facility) GetBidPortfolios(commodity string, requests []*exchange.Request[resource.Generic]) []*exchange.BidPortfolio[resource.Generic] {
	if f.cfg.Role != Producer || commodity != f.cfg.Commodity || len(requests) == 0 {
		return nil
	}
	bp := exchange.NewBidPortfolio[resource.Generic](f.ids)
	for _, req := range requests {
		offer := resource.Generic{Commodity: f.cfg.Commodity, Qty: f.cfg.Quantity}
		if _, err := bp.AddBid(offer, f, req, false); err != nil {
			logrus.WithError(err).WithField("facility", f.cfg.ID).Error("facility: failed to add bid")
			return nil
		}
	}
	if f.cfg.Capacity > 0 {
		c := exchange.NewCapacityConstraint[resource.Generic](f.ids, f.cfg.Capacity, exchange.TrivialConverter[resource.Generic]{}, "supply-cap")
		bp.AddConstraint(c)
	}
	return []*exchange.BidPortfolio[resource.Generic]{bp}
}

// AdjustPreferences implements exchange.RequestBidder. The reference
// facility never biases the preferences the exchange seeded from each
// request's own Preference field, so it leaves prefs untouched.
func (f *Facility) AdjustPreferences(_ exchange.PrefTable[resource.Generic]) {}

// ApplyTrade implements exchange.RequestBidder.
func (f *Facility) ApplyTrade(req *exchange.Request[resource.Generic], bid *exchange.Bid[resource.Generic], qty float64) {
	f.TradesSettled++
	f.QtyTraded += qty
	logrus.WithFields(logrus.Fields{
		"facility":  f.cfg.ID,
		"commodity": req.Commodity,
		"qty":       qty,
	}).Debug("facility: trade settled")
}
