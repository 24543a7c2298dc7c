package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

const (
	unknownAgentReply  = "Interner Fehler: Agent nicht gefunden."
	agentTroubleReply  = "Entschuldigung, ich hatte ein Problem. Kannst du das nochmal sagen?"
	handoffTargetReply = "Handoff fehlgeschlagen: Unbekanntes Handoff-Ziel."
)

// RunAgentStep executes a pending agent step and interprets the decision it
// returns: a handoff is validated into the session, a tool request becomes
// the next pending step with the issuing agent as return address, and an
// explicit transition queues the next agent. Everything else suspends the
// turn. Agent failures never abort the turn; they degrade into an apology.
func RunAgentStep(ctx context.Context, in *GraphState, agents contractx.AgentRegistry, tools contractx.ToolRegistry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if agents == nil || tools == nil {
		return nil, fmt.Errorf("%w: registries are nil", contractx.ErrValidation)
	}
	if in.Pending == nil {
		return nil, fmt.Errorf("%w: no pending agent step", contractx.ErrValidation)
	}

	step := *in.Pending
	in.Pending = nil

	agent, ok := agents.Agent(contractx.AgentName(step.Name))
	if !ok {
		log.Error().Str("session_id", in.SessionID).Str("agent", step.Name).Msg("routed to unregistered agent")
		appendReply(in, unknownAgentReply, senderSystem, nil)
		in.Awaiting = true
		return in, nil
	}

	decision, err := agent.Process(ctx, in.Session)
	if err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Str("agent", step.Name).Msg("agent processing failed")
		appendReply(in, agentTroubleReply, step.Name, nil)
		in.Awaiting = true
		return in, nil
	}

	in.Session.CurrentAgent = step.Name
	in.Stage = step.Name
	appendReply(in, decision.Message, step.Name, nil)

	return interpretDecision(in, step.Name, decision, agents, tools), nil
}

func interpretDecision(in *GraphState, agentName string, decision contractx.Decision, agents contractx.AgentRegistry, tools contractx.ToolRegistry) *GraphState {
	if decision.Action == contractx.ActionHandoff {
		return applyHandoffDecision(in, agentName, decision, agents)
	}

	if decision.Action != "" {
		if _, ok := tools.Tool(decision.Action); !ok {
			log.Warn().Str("session_id", in.SessionID).Str("agent", agentName).Str("tool", decision.Action).Msg("agent requested unknown tool")
			in.Awaiting = true
			return in
		}
		in.Pending = &contractx.Action{
			Kind:           contractx.ActionTool,
			Name:           decision.Action,
			Params:         decision.ActionParams,
			ShouldContinue: decision.ShouldContinue,
			ReturnToAgent:  returnAgent(decision.NextDestination, agentName),
		}
		return in
	}

	// A self transition without an action would re-run the agent on input it
	// has already answered, so only moves to a different specialist count.
	next := contractx.AgentName(decision.NextDestination)
	if decision.ShouldContinue && decision.NextDestination != agentName && isSpecialist(next) {
		in.Pending = &contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           decision.NextDestination,
			Params:         decision.ActionParams,
			ShouldContinue: true,
		}
		return in
	}

	in.Awaiting = true
	return in
}

func applyHandoffDecision(in *GraphState, agentName string, decision contractx.Decision, agents contractx.AgentRegistry) *GraphState {
	target, _ := decision.ActionParams["target_agent"].(string)
	payload, _ := decision.ActionParams["payload"].(map[string]any)

	if err := in.Session.ApplyHandoff(target, payload); err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Str("target", target).Msg("handoff rejected")
		if errors.Is(err, statex.ErrUnknownHandoff) {
			appendReply(in, handoffTargetReply, agentName, nil)
		} else {
			appendReply(in, fmt.Sprintf("Handoff fehlgeschlagen: %v", err), agentName, nil)
		}
		in.Awaiting = true
		return in
	}

	if _, ok := agents.Agent(contractx.AgentName(target)); ok {
		in.Pending = &contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           target,
			ShouldContinue: true,
		}
		return in
	}

	// The hitl target has no conversational agent behind it; the turn ends
	// with the handing agent's own message.
	in.Awaiting = true
	return in
}

func returnAgent(nextDestination, fallback string) contractx.AgentName {
	if next := contractx.AgentName(nextDestination); isSpecialist(next) {
		return next
	}
	return contractx.AgentName(fallback)
}

func isSpecialist(name contractx.AgentName) bool {
	switch name {
	case contractx.AgentNeedsAssessment, contractx.AgentDesign, contractx.AgentMeasurement:
		return true
	}
	return false
}
