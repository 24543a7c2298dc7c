package orchestratornode

import (
	"fmt"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

// FinalizeTurn shapes the settled loop state into the caller-facing result.
// A turn that produced no new reply falls back to the newest assistant
// message on record so the caller never renders an empty bubble.
func FinalizeTurn(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}

	reply := in.Reply
	if reply == "" {
		reply = in.Session.LastAssistantReply()
	}

	stage := in.Stage
	if stage == "" {
		stage = in.Session.CurrentAgent
	}
	if stage == "" {
		stage = senderSupervisor
	}

	return GraphOutput{
		SessionID: in.SessionID,
		Reply:     reply,
		Messages:  in.Session.History,
		Stage:     stage,
	}, nil
}
