// Package kernel implements the fuel-cycle simulator's time-stepped
// scheduler: an integer time loop that drives agent
// build/decommission queues and phase-dispatches registered listeners
// around each tick's Dynamic Resource Exchange rounds. The agent library itself is an external collaborator; this
// package only defines the narrow lifecycle and notification
// interfaces agents must honor.
package kernel

// TimeListener is the agent-boundary notification interface: an agent
// that wants Tick/Tock callbacks registers under its stable ID.
// Iteration order during a phase is ascending ID, so two runs with an
// identical listener set produce an identical callback order.
type TimeListener interface {
	Tick()
	Tock()
	ID() int
}

// Agent is the build/decommission lifecycle interface the scheduler
// drives. Concrete agent types, and the prototype registry that
// constructs them, belong to the external agent library; the
// scheduler only needs these four calls to keep its queues coherent.
type Agent interface {
	// Build is invoked on a newly constructed agent with its parent
	// (nil for a root agent), before the agent is registered as a
	// TimeListener.
	Build(parent Agent)
	// BuildNotify is invoked on a parent once a child it spawned has
	// been built.
	BuildNotify(child Agent)
	// Decommission is invoked when the scheduler retires the agent, at
	// or after the time SchedDecom named.
	Decommission()
	// DecomNotify is invoked on a parent just before one of its children
	// is decommissioned, while the child is still live.
	DecomNotify(child Agent)
	// Parent returns the agent's current parent, if any.
	Parent() (Agent, bool)
}

// Builder instantiates a new Agent from a prototype name. It is the
// scheduler's only hook into the I/O and configuration surface that
// knows how to construct concrete agents; that surface is external to
// this package.
type Builder interface {
	BuildAgent(proto string) (Agent, error)
}
