package supervisor

import (
	"context"

	"github.com/ybryxcapital/agentcore/pkg/memory"
)

// State is the routing state threaded through one turn of the loop. It is
// rebuilt fresh every turn; durable facts live in the memory manager.
type State struct {
	SessionID string
	UserID    string
	Input     string

	// Memory is the context aggregate loaded at the start of the turn and
	// shared with every specialist the turn touches.
	Memory memory.Context

	// Iterations counts completed specialist executions this turn.
	Iterations int

	// LastRoute and LastOutput describe the most recent execution, if any.
	LastRoute  Route
	LastOutput *Output

	// Facts accumulates structured state deltas emitted by specialists.
	Facts map[string]any
}

// Input is what a specialist receives for one execution.
type Input struct {
	SessionID string
	UserID    string
	Text      string
	Memory    memory.Context
	Facts     map[string]any
}

// Output is what a specialist hands back.
type Output struct {
	ResponseText string
	StateDelta   map[string]any
	TriggerFired bool
	Err          error
}

// Specialist is one member of the crew the router can dispatch to.
type Specialist interface {
	Name() string
	Execute(ctx context.Context, input Input) Output
}

// Decider chooses the next route given the current state.
type Decider interface {
	Decide(ctx context.Context, state *State) Route
}

// TurnResult summarizes one completed turn.
type TurnResult struct {
	SessionID    string
	ResponseText string
	Route        Route
	Iterations   int
	TriggerFired bool
	ForcedFinish bool
	WriteOutcome memory.WriteOutcome
}
