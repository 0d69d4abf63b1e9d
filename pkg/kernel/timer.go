package kernel

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gidden/cyclus/pkg/exchange"
	"github.com/gidden/cyclus/pkg/persist"
	"github.com/gidden/cyclus/pkg/telemetry"
)

// SimInfo configures one simulation run.
type SimInfo struct {
	// Duration is the number of ticks to run, t=0..Duration-1.
	Duration int
	// M0 is the calendar starting month, 1-12.
	M0 int
	// BranchTime is the tick a branched simulation resumes at, or -1
	// for a fresh run starting at t=0.
	BranchTime int
}

type buildRequest struct {
	proto  string
	parent Agent
}

// Timer is the integer time-stepped scheduler: it owns the
// current tick, the listener registry, the build/decommission queues,
// and drives Build -> Tick -> Exchange -> Tock -> Decom -> advance
// once per tick until Duration is reached or Kill is called.
type Timer struct {
	t          int
	duration   int
	branchTime int
	wantKill   bool
	snapshot   bool

	builder   Builder
	exchanges []exchange.Round
	sink      persist.Sink
	metrics   *telemetry.Metrics
	observers []Observer

	listeners        map[int]TimeListener
	buildQueue       map[int][]buildRequest
	decomQueue       map[int][]Agent
	decomScheduledAt map[Agent]int
}

// NewTimer returns a Timer that builds agents via builder, runs
// exchanges (in the given, fixed order) once per tick, and writes
// terminal data to sink. Both builder and sink may be nil: a nil
// builder makes SchedBuild's queue effectively write-only (build will
// fail loudly if anything is ever queued), and a nil sink silently
// drops the Finish row. metrics may be nil.
func NewTimer(builder Builder, exchanges []exchange.Round, sink persist.Sink, metrics *telemetry.Metrics) *Timer {
	tm := &Timer{
		builder:   builder,
		exchanges: exchanges,
		sink:      sink,
		metrics:   metrics,
	}
	tm.Reset()
	return tm
}

// AddObserver registers o to receive phase-transition notifications.
func (tm *Timer) AddObserver(o Observer) { tm.observers = append(tm.observers, o) }

// Time returns the current tick.
func (tm *Timer) Time() int { return tm.t }

// RequestSnapshot sets the snapshot flag: the next tick begins with a
// snapshot emission, and the flag clears itself.
func (tm *Timer) RequestSnapshot() { tm.snapshot = true }

// Kill requests cooperative termination: want_kill is checked at
// end-of-tick, never mid-phase.
func (tm *Timer) Kill() { tm.wantKill = true }

// Initialize validates si and sets the timer's starting time,
// honoring BranchTime when non-negative. It returns a *ValueError if
// M0 is out of [1,12].
func (tm *Timer) Initialize(si SimInfo) error {
	if si.M0 < 1 || si.M0 > 12 {
		return exchange.NewValueError("m0 must be in [1,12], got %d", si.M0)
	}
	tm.duration = si.Duration
	tm.branchTime = si.BranchTime
	if si.BranchTime >= 0 {
		tm.t = si.BranchTime
	} else {
		tm.t = 0
	}
	tm.wantKill = false
	return nil
}

// Reset clears listeners, queues, and control flags. Configuration
// (builder, exchanges, sink, metrics, observers) survives a Reset.
func (tm *Timer) Reset() {
	tm.listeners = make(map[int]TimeListener)
	tm.buildQueue = make(map[int][]buildRequest)
	tm.decomQueue = make(map[int][]Agent)
	tm.decomScheduledAt = make(map[Agent]int)
	tm.snapshot = false
	tm.wantKill = false
	tm.t = 0
}

// RegisterTimeListener adds l to the listener registry, keyed by
// l.ID(). Registering an ID that's already present replaces the
// existing listener.
func (tm *Timer) RegisterTimeListener(l TimeListener) {
	tm.listeners[l.ID()] = l
}

// UnregisterTimeListener removes l from the listener registry.
func (tm *Timer) UnregisterTimeListener(l TimeListener) {
	delete(tm.listeners, l.ID())
}

// SchedBuild enqueues proto to be built with parent at time t. It
// fails with a *ValueError if t is at or before the current time,
// since the current step's build phase has already run.
func (tm *Timer) SchedBuild(parent Agent, proto string, t int) error {
	if t <= tm.t {
		return exchange.NewValueError("cannot schedule build at or before current time %d (got %d)", tm.t, t)
	}
	tm.buildQueue[t] = append(tm.buildQueue[t], buildRequest{proto: proto, parent: parent})
	return nil
}

// SchedDecom enqueues agent for decommission at time t. It fails with
// a *ValueError if t is before the current time. If agent is already
// scheduled for a future decommission, the prior entry is removed
// first (a warning is logged) so an agent is never decommissioned
// twice.
func (tm *Timer) SchedDecom(agent Agent, t int) error {
	if t < tm.t {
		return exchange.NewValueError("cannot schedule decommission before current time %d (got %d)", tm.t, t)
	}
	if prevT, ok := tm.decomScheduledAt[agent]; ok {
		tm.removeDecom(agent, prevT)
		logrus.WithFields(logrus.Fields{"from": prevT, "to": t}).Warn("kernel: re-scheduling decommission for an agent already queued")
	}
	tm.decomQueue[t] = append(tm.decomQueue[t], agent)
	tm.decomScheduledAt[agent] = t
	return nil
}

func (tm *Timer) removeDecom(agent Agent, t int) {
	q := tm.decomQueue[t]
	for i, existing := range q {
		if existing == agent {
			tm.decomQueue[t] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// RunSim runs the main loop until the current time reaches Duration
// or Kill has been requested, dispatching Build -> Tick -> Exchange ->
// Tock -> Decom once per tick. It writes a terminal Finish(EarlyTerm,
// EndTime) row and unconditionally emits a snapshot before returning.
//
// A panic from a listener, agent lifecycle callback, or exchange
// round is recovered here, converted to an error, and treated exactly
// like any other mid-tick failure: the loop stops, the Finish row is
// written with EarlyTerm=true, and the error is returned to the
// caller. A failing listener terminates the simulation, not the
// process.
func (tm *Timer) RunSim() (err error) {
	lastCompleted := tm.t - 1

	defer func() {
		if r := recover(); r != nil {
			err = exchange.NewInvariantError("panic during tick %d: %v", tm.t, r)
		}
		earlyTerm := tm.t < tm.duration || err != nil
		tm.finish(earlyTerm, lastCompleted)
	}()

	for tm.t < tm.duration && !tm.wantKill {
		if tm.snapshot {
			tm.notifySnapshot()
			tm.snapshot = false
		}
		if err := tm.runTick(); err != nil {
			return err
		}
		lastCompleted = tm.t
		tm.t++
	}
	return nil
}

func (tm *Timer) runTick() error {
	if err := tm.build(); err != nil {
		return err
	}
	tm.notifyTick()
	tm.dispatchObservers(func(o Observer) { o.OnTick(tm.t) })

	if err := tm.exchangeRound(); err != nil {
		return err
	}

	tm.notifyTock()
	tm.dispatchObservers(func(o Observer) { o.OnTock(tm.t) })

	tm.decom()
	tm.metrics.IncTicks()
	return nil
}

func (tm *Timer) build() error {
	queued := tm.buildQueue[tm.t]
	delete(tm.buildQueue, tm.t)
	for _, req := range queued {
		if tm.builder == nil {
			return exchange.NewValueError("no agent builder configured, cannot build prototype %q", req.proto)
		}
		agent, err := tm.builder.BuildAgent(req.proto)
		if err != nil {
			return err
		}
		agent.Build(req.parent)
		if req.parent != nil {
			req.parent.BuildNotify(agent)
		}
		if l, ok := agent.(TimeListener); ok {
			tm.RegisterTimeListener(l)
		}
		tm.metrics.IncBuilds()
	}
	return nil
}

func (tm *Timer) decom() {
	queued := tm.decomQueue[tm.t]
	delete(tm.decomQueue, tm.t)
	for _, agent := range queued {
		delete(tm.decomScheduledAt, agent)
		// Notify the parent while the child is still live, then tear the
		// child down.
		if parent, ok := agent.Parent(); ok {
			parent.DecomNotify(agent)
		}
		agent.Decommission()
		if l, ok := agent.(TimeListener); ok {
			tm.UnregisterTimeListener(l)
		}
		tm.metrics.IncDecoms()
	}
}

func (tm *Timer) exchangeRound() error {
	for _, round := range tm.exchanges {
		start := time.Now()
		matches, err := round.Run()
		tm.metrics.ObserveExchange(round.Kind(), time.Since(start).Seconds(), matches)
		tm.dispatchObservers(func(o Observer) { o.OnExchange(tm.t, round.Kind(), matches) })
		if err != nil {
			return err
		}
	}
	return nil
}

func (tm *Timer) notifyTick() {
	for _, id := range tm.sortedListenerIDs() {
		tm.listeners[id].Tick()
	}
}

func (tm *Timer) notifyTock() {
	for _, id := range tm.sortedListenerIDs() {
		tm.listeners[id].Tock()
	}
}

func (tm *Timer) sortedListenerIDs() []int {
	ids := make([]int, 0, len(tm.listeners))
	for id := range tm.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (tm *Timer) notifySnapshot() {
	logrus.WithField("t", tm.t).Debug("kernel: snapshot requested")
	tm.dispatchObservers(func(o Observer) { o.OnSnapshot(tm.t) })
}

func (tm *Timer) finish(earlyTerm bool, endTime int) {
	if tm.sink != nil {
		d := tm.sink.NewDatum("Finish")
		d.AddVal("EarlyTerm", earlyTerm).AddVal("EndTime", endTime)
		d.Record()
	}
	tm.notifySnapshot()
	tm.dispatchObservers(func(o Observer) { o.OnFinish(earlyTerm, endTime) })
}

func (tm *Timer) dispatchObservers(f func(Observer)) {
	for _, o := range tm.observers {
		f(o)
	}
}
