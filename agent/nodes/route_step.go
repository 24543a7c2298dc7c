package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	assessx "github.com/laserhenk/henk-agent/agent/assess"
	contractx "github.com/laserhenk/henk-agent/agent/contract"
	supervisorx "github.com/laserhenk/henk-agent/agent/supervisor"
)

// RouteNextStep decides what the loop does next. A pending step carried over
// from the previous iteration is re-checked against the completeness gate
// and kept; without one the router is consulted with the pending user input.
// Clarification and end decisions finish the turn right here, before any
// step runs.
func RouteNextStep(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if router == nil {
		return nil, fmt.Errorf("%w: router is nil", contractx.ErrValidation)
	}

	// The assessment is recomputed on every pass. Continuation steps queued
	// by agents or tools go back through the gate so a chain of steps cannot
	// outrun the phase ordering.
	in.Assessment = assessx.Assess(in.Session)

	if in.Pending != nil {
		gated := supervisorx.ApplyGate(*in.Pending, in.Assessment)
		in.Pending = &gated
		return in, nil
	}

	action := router.Decide(ctx, in.Session.UserInput, in.Session)
	log.Debug().
		Str("session_id", in.SessionID).
		Str("kind", string(action.Kind)).
		Str("name", action.Name).
		Msg("routed")

	switch action.Kind {
	case contractx.ActionEnd, contractx.ActionClarification:
		appendReply(in, action.UserMessage, senderSupervisor, routingMetadata(action))
		in.Awaiting = true
	default:
		in.Pending = &action
	}
	return in, nil
}

func routingMetadata(action contractx.Action) map[string]any {
	if action.Reasoning == "" {
		return nil
	}
	return map[string]any{
		"reasoning":  action.Reasoning,
		"confidence": action.Confidence,
	}
}
