package kernel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidden/cyclus/pkg/persist"
)

// recordingListener is a minimal TimeListener/Agent that appends
// "tick <id>" or "tock <id>" to a shared call log on every Tick/Tock,
// so tests can assert on cross-listener ordering.
type recordingListener struct {
	id       int
	log      *[]string
	parent   Agent
	built    bool
	decomed  bool
	children []Agent
}

func (l *recordingListener) ID() int { return l.id }
func (l *recordingListener) Tick()   { *l.log = append(*l.log, fmt.Sprintf("tick %d", l.id)) }
func (l *recordingListener) Tock()   { *l.log = append(*l.log, fmt.Sprintf("tock %d", l.id)) }

func (l *recordingListener) Build(parent Agent)    { l.built = true; l.parent = parent }
func (l *recordingListener) BuildNotify(c Agent)   { l.children = append(l.children, c) }
func (l *recordingListener) Decommission()         { l.decomed = true }
func (l *recordingListener) DecomNotify(Agent)     {}
func (l *recordingListener) Parent() (Agent, bool) { return l.parent, l.parent != nil }

func TestTimer_RunSim_EmptyDurationTicksWithNoAgents(t *testing.T) {
	// duration=3, no agents or exchanges registered.
	sink := persist.NewMemorySink()
	tm := NewTimer(nil, nil, sink, nil)
	require.NoError(t, tm.Initialize(SimInfo{Duration: 3, M0: 1, BranchTime: -1}))

	err := tm.RunSim()
	require.NoError(t, err)

	rows := sink.Rows("Finish")
	require.Len(t, rows, 1)
	assert.Equal(t, false, rows[0]["EarlyTerm"])
	assert.Equal(t, 2, rows[0]["EndTime"])
	assert.Equal(t, 3, tm.Time())
}

func TestTimer_SchedDecom_ReschedulingFiresOnlyOnce(t *testing.T) {
	// An agent is scheduled for decommission at t=5, then
	// rescheduled to t=7 before that tick arrives. It must decommission
	// exactly once, at the later time.
	sink := persist.NewMemorySink()
	tm := NewTimer(nil, nil, sink, nil)
	require.NoError(t, tm.Initialize(SimInfo{Duration: 10, M0: 1, BranchTime: -1}))

	log := []string{}
	agent := &recordingListener{id: 1, log: &log}
	tm.RegisterTimeListener(agent)

	require.NoError(t, tm.SchedDecom(agent, 5))
	require.NoError(t, tm.SchedDecom(agent, 7))

	for tm.Time() < 7 {
		require.NoError(t, tm.runTick())
		tm.t++
	}
	assert.False(t, agent.decomed, "agent must not decommission at the superseded time")

	require.NoError(t, tm.runTick())
	assert.True(t, agent.decomed, "agent must decommission at the rescheduled time")

	tm.t++
	log = log[:0]
	require.NoError(t, tm.runTick())
	assert.NotContains(t, log, "tick 1", "a decommissioned agent must no longer receive Tick callbacks")
}

func TestTimer_Initialize_RejectsOutOfRangeMonth(t *testing.T) {
	tm := NewTimer(nil, nil, nil, nil)

	err := tm.Initialize(SimInfo{Duration: 1, M0: 0, BranchTime: -1})
	require.Error(t, err)

	err = tm.Initialize(SimInfo{Duration: 1, M0: 13, BranchTime: -1})
	require.Error(t, err)

	require.NoError(t, tm.Initialize(SimInfo{Duration: 1, M0: 12, BranchTime: -1}))
}

func TestTimer_SchedBuild_RejectsAtOrBeforeCurrentTime(t *testing.T) {
	tm := NewTimer(nil, nil, nil, nil)
	require.NoError(t, tm.Initialize(SimInfo{Duration: 5, M0: 1, BranchTime: -1}))

	err := tm.SchedBuild(nil, "widget", 0)
	require.Error(t, err)
}

func TestTimer_NotifyOrder_IsDeterministicByAscendingID(t *testing.T) {
	// Identical listener sets produce identical callback
	// order across repeated runs, ordered by ascending ID regardless of
	// registration order.
	runOnce := func() []string {
		sink := persist.NewMemorySink()
		tm := NewTimer(nil, nil, sink, nil)
		require.NoError(t, tm.Initialize(SimInfo{Duration: 2, M0: 1, BranchTime: -1}))

		log := []string{}
		a3 := &recordingListener{id: 3, log: &log}
		a1 := &recordingListener{id: 1, log: &log}
		a2 := &recordingListener{id: 2, log: &log}
		// Register out of ID order to prove iteration sorts by ID, not
		// registration order.
		tm.RegisterTimeListener(a3)
		tm.RegisterTimeListener(a1)
		tm.RegisterTimeListener(a2)

		require.NoError(t, tm.RunSim())
		return append([]string{}, log...)
	}

	first := runOnce()
	second := runOnce()
	assert.Equal(t, first, second)
	// Two ticks, three listeners, Tick then Tock per tick: 12 entries.
	assert.Len(t, first, 12)
	perTick := []string{"tick 1", "tick 2", "tick 3", "tock 1", "tock 2", "tock 3"}
	assert.Equal(t, append(append([]string{}, perTick...), perTick...), first)
}

func TestTimer_Build_RegistersAgentAsListenerAndNotifiesParent(t *testing.T) {
	sink := persist.NewMemorySink()
	log := []string{}
	parent := &recordingListener{id: 1, log: &log}
	child := &recordingListener{id: 2, log: &log}

	builder := builderFunc(func(proto string) (Agent, error) {
		return child, nil
	})

	tm := NewTimer(builder, nil, sink, nil)
	require.NoError(t, tm.Initialize(SimInfo{Duration: 3, M0: 1, BranchTime: -1}))
	tm.RegisterTimeListener(parent)

	require.NoError(t, tm.SchedBuild(parent, "reactor", 1))
	require.NoError(t, tm.runTick())
	tm.t++
	require.NoError(t, tm.runTick())

	assert.True(t, child.built)
	assert.Same(t, parent, child.parent)
	assert.Equal(t, []Agent{child}, parent.children)
	assert.Contains(t, log, "tick 2", "the built agent must be registered as a listener")
}

type builderFunc func(proto string) (Agent, error)

func (f builderFunc) BuildAgent(proto string) (Agent, error) { return f(proto) }
