package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

const toolMissingReply = "Tool nicht gefunden."

// RunToolStep executes a pending tool step. The pending user input is
// consumed no matter how the run ends, so a stale message can never drive a
// second decision. On success the return address resumes the issuing agent;
// a failure degrades into an apology and suspends, because resuming an agent
// whose tool call left no trace in the session would just re-trigger the
// same call.
func RunToolStep(ctx context.Context, in *GraphState, tools contractx.ToolRegistry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if tools == nil {
		return nil, fmt.Errorf("%w: tool registry is nil", contractx.ErrValidation)
	}
	if in.Pending == nil {
		return nil, fmt.Errorf("%w: no pending tool step", contractx.ErrValidation)
	}

	step := *in.Pending
	in.Pending = nil
	in.Stage = step.Name
	in.Session.UserInput = ""

	tool, ok := tools.Tool(step.Name)
	if !ok {
		log.Warn().Str("session_id", in.SessionID).Str("tool", step.Name).Msg("routed to unregistered tool")
		appendReply(in, toolMissingReply, step.Name, nil)
		in.Awaiting = true
		return in, nil
	}

	out, err := tool.Run(ctx, step.Params, in.Session)
	if err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Str("tool", step.Name).Msg("tool run failed")
		appendReply(in, fmt.Sprintf("Entschuldigung, das Tool '%s' hatte ein Problem.", step.Name), step.Name, nil)
		in.Awaiting = true
		return in, nil
	}

	appendReply(in, out.Text, step.Name, out.Metadata)

	if step.ReturnToAgent != "" {
		in.Pending = &contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           string(step.ReturnToAgent),
			ShouldContinue: true,
		}
		return in, nil
	}
	in.Awaiting = true
	return in, nil
}
