/*
Package supervisor implements the routing state machine that sits between the
chat surface and the specialist crew. Each user turn is dispatched through a
bounded loop: load context, pick a route, execute the specialist, and persist
exactly one memory of the completed turn.
*/
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ybryxcapital/agentcore/pkg/errors"
	"github.com/ybryxcapital/agentcore/pkg/memory"
)

// DefaultMaxIterations bounds how many specialist executions one turn may
// consume before the router forces a finish.
const DefaultMaxIterations = 10

const fallbackResponse = "I'm sorry, I ran into a problem handling that. Could you try rephrasing, or ask me something else about our robotics leasing options?"

// Router owns the crew and drives the per-turn routing loop. Turns within one
// session are serialized so the session's memory has a single writer.
type Router struct {
	manager       *memory.Manager
	members       map[Route]Specialist
	decider       Decider
	maxIterations int

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewRouter wires a router around a memory manager. A nil decider gets the
// keyword decider; a non-positive limit gets DefaultMaxIterations.
func NewRouter(manager *memory.Manager, decider Decider, maxIterations int) *Router {
	if decider == nil {
		decider = KeywordDecider{}
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	return &Router{
		manager:       manager,
		members:       make(map[Route]Specialist),
		decider:       decider,
		maxIterations: maxIterations,
		sessions:      make(map[string]*sync.Mutex),
	}
}

// Register adds a specialist under its route.
func (r *Router) Register(route Route, specialist Specialist) {
	r.members[route] = specialist
}

func (r *Router) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.sessions[sessionID] = lock
	}

	return lock
}

/*
RunTurn processes one user message end to end. An empty session id starts a
new session. The routing loop never exceeds the iteration budget: when the
budget is spent the finish is forced regardless of what the decider wants.
The turn's memory write happens after the final execution has returned, and
exactly once per turn.
*/
func (r *Router) RunTurn(ctx context.Context, userID, sessionID, text string) (TurnResult, error) {
	if sessionID == "" {
		created, err := r.manager.CreateSession(ctx, userID, "supervisor")
		if err != nil {
			return TurnResult{}, err
		}
		sessionID = created
	}

	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	r.manager.AppendThread(sessionID, memory.RoleUser, text)

	loaded := r.manager.LoadContext(ctx, userID, sessionID, memory.LoadOptions{
		Query:          text,
		IncludeGoals:   true,
		IncludeBeliefs: true,
	})

	state := &State{
		SessionID: sessionID,
		UserID:    userID,
		Input:     text,
		Memory:    loaded,
		Facts:     make(map[string]any),
	}

	forced := false

	for {
		var route Route

		if state.Iterations >= r.maxIterations {
			route = Finish
			forced = true
			log.Warn("iteration budget exhausted, forcing finish",
				"session_id", sessionID, "iterations", state.Iterations)
		} else {
			route = r.decider.Decide(ctx, state)
		}

		if route == Finish {
			break
		}

		specialist, ok := r.members[route]
		if !ok {
			route = Knowledge
			specialist, ok = r.members[Knowledge]
			if !ok {
				break
			}
		}

		output := r.execute(ctx, specialist, route, state)
		state.Iterations++
		state.LastRoute = route
		state.LastOutput = &output

		if output.Err != nil {
			break
		}

		for key, value := range output.StateDelta {
			state.Facts[key] = value
		}
	}

	result := TurnResult{
		SessionID:    sessionID,
		Route:        state.LastRoute,
		Iterations:   state.Iterations,
		ForcedFinish: forced,
	}

	if state.LastOutput == nil {
		result.ResponseText = fallbackResponse
		return result, nil
	}

	if state.LastOutput.Err != nil {
		result.ResponseText = fallbackResponse
	} else {
		result.ResponseText = state.LastOutput.ResponseText
		result.TriggerFired = state.LastOutput.TriggerFired
	}

	receipt, err := r.writeTurn(ctx, state)
	result.WriteOutcome = receipt.Outcome
	if err != nil {
		return result, err
	}

	return result, nil
}

func (r *Router) execute(ctx context.Context, specialist Specialist, route Route, state *State) Output {
	output := specialist.Execute(ctx, Input{
		SessionID: state.SessionID,
		UserID:    state.UserID,
		Text:      state.Input,
		Memory:    state.Memory,
		Facts:     state.Facts,
	})

	execution := memory.ExecutionLog{
		UserID:      state.UserID,
		SessionID:   state.SessionID,
		Agent:       specialist.Name(),
		ExecutionID: uuid.New().String(),
		Input:       state.Input,
		Output:      output.ResponseText,
		Status:      "success",
	}

	if output.Err != nil {
		failure := errors.NewSpecialistFailure(specialist.Name(), output.Err)
		execution.Status = "failed"
		execution.ErrorDetail = failure.Error()
		output.Err = failure

		log.Error("specialist execution failed",
			"agent", specialist.Name(), "session_id", state.SessionID, "error", output.Err)
	}

	r.manager.LogExecution(ctx, execution)

	return output
}

// writeTurn persists the single memory record for a completed turn. Financing
// turns are episodic; everything else lands in long-term memory.
func (r *Router) writeTurn(ctx context.Context, state *State) (memory.WriteReceipt, error) {
	output := state.LastOutput

	content := map[string]any{
		"input":    state.Input,
		"response": output.ResponseText,
	}

	if output.Err != nil {
		content["response"] = ""
		content["error"] = output.Err.Error()
	}

	if len(state.Facts) > 0 {
		content["facts"] = state.Facts
	}

	envelope := memory.Envelope{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Agent:     state.LastRoute.String(),
		SessionID: state.SessionID,
		Type:      "turn",
		Content:   content,
	}

	kind := memory.KindLongTerm
	if state.LastRoute == Financing {
		kind = memory.KindEpisodic
	}

	return r.manager.WriteMemory(ctx, state.UserID, state.SessionID, envelope, kind,
		[]string{state.LastRoute.String()})
}
