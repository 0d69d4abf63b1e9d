package exchange

import "sort"

// Solver is the pluggable numerical optimizer the exchange manager
// hands a partitioned graph to. Implementations must never allocate a
// match that exceeds any endpoint's per-constraint capacity. A
// solver that cannot find a feasible flow should return an empty
// match slice and a nil error: infeasibility is a normal outcome of
// an over-constrained market, not a failure of the round.
type Solver interface {
	Solve(subgraphs []*Subgraph) ([]Match, error)
}

// GreedySolver is the reference Solver shipped with the kernel so the
// scheduler is runnable and testable end to end without the external
// numerical optimizer this package intentionally does not implement.
// For each subgraph, it visits arcs in descending recorded-preference
// order (ties broken by declaration order, for determinism) and
// greedily commits the largest quantity each arc's endpoints have
// residual capacity for. This always produces a feasible flow, but
// does not claim to maximize total matched surplus — that guarantee
// belongs to the real optimizer this type stands in for.
type GreedySolver struct{}

// NewGreedySolver returns a GreedySolver.
func NewGreedySolver() *GreedySolver { return &GreedySolver{} }

// Solve implements Solver.
func (s *GreedySolver) Solve(subgraphs []*Subgraph) ([]Match, error) {
	// Residuals are shared across subgraphs: the nodes of one group can
	// fall in different components, and they still draw on one capacity.
	residual := make(map[NodeGroup][]float64)
	allocated := make(map[*ExchangeNode]float64)
	var matches []Match
	for _, sg := range subgraphs {
		matches = append(matches, s.solveSubgraph(sg, residual, allocated)...)
	}
	return matches, nil
}

func (s *GreedySolver) solveSubgraph(sg *Subgraph, residual map[NodeGroup][]float64, allocated map[*ExchangeNode]float64) []Match {
	arcs := make([]*Arc, len(sg.Arcs))
	copy(arcs, sg.Arcs)
	sort.SliceStable(arcs, func(i, j int) bool { return arcs[i].Preference > arcs[j].Preference })

	residualFor := func(g NodeGroup) []float64 {
		r, ok := residual[g]
		if !ok {
			caps := g.Capacities()
			r = make([]float64, len(caps))
			copy(r, caps)
			residual[g] = r
		}
		return r
	}

	var matches []Match

	for _, a := range arcs {
		u, v := a.UNode, a.VNode
		qty := u.FullQty() - allocated[u]
		if rem := v.FullQty() - allocated[v]; rem < qty {
			qty = rem
		}
		qty = clampByConstraints(residualFor(u.Group()), u.UnitCapacities(a), u.FullQty(), qty)
		qty = clampByConstraints(residualFor(v.Group()), v.UnitCapacities(a), v.FullQty(), qty)
		qty = clamp(qty)
		if qty <= epsilon {
			continue
		}

		allocated[u] += qty
		allocated[v] += qty
		commitResidual(residualFor(u.Group()), u.UnitCapacities(a), u.FullQty(), qty)
		commitResidual(residualFor(v.Group()), v.UnitCapacities(a), v.FullQty(), qty)
		matches = append(matches, Match{Arc: a, Qty: qty})
	}
	return matches
}

// clampByConstraints reduces qty so that allocating it against node's
// unit-capacity vector never exceeds any remaining residual in
// residual. unitCaps and residual are parallel by construction, one
// entry per constraint in registration order; a node with no declared
// constraints has an empty unitCaps and residual is left untouched.
func clampByConstraints(residual []float64, unitCaps []float64, fullQty float64, qty float64) float64 {
	if len(unitCaps) == 0 || fullQty <= 0 {
		return qty
	}
	for k, uc := range unitCaps {
		if uc <= 0 {
			continue
		}
		allowed := residual[k] / uc * fullQty
		if allowed < qty {
			qty = allowed
		}
	}
	return qty
}

func commitResidual(residual []float64, unitCaps []float64, fullQty float64, qty float64) {
	if len(unitCaps) == 0 || fullQty <= 0 {
		return
	}
	frac := qty / fullQty
	for k, uc := range unitCaps {
		residual[k] -= uc * frac
	}
}
