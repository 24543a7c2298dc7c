// Package orchestrator drives one conversation turn through the step loop:
// route, run the chosen agent or tool, loop while a continuation is queued,
// then persist and answer. The loop itself is an eino graph; the nodes live
// in agent/nodes.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	nodex "github.com/laserhenk/henk-agent/agent/nodes"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

var ErrInvalidSession = nodex.ErrInvalidSession

type Orchestrator struct {
	store  statex.Store
	router contractx.Router
	agents contractx.AgentRegistry
	tools  contractx.ToolRegistry

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

// TurnResult is what one completed turn hands back to the transport layer.
type TurnResult struct {
	SessionID string
	Reply     string
	Messages  []statex.Turn
	Stage     string
}

func New(
	store statex.Store,
	router contractx.Router,
	agents contractx.AgentRegistry,
	tools contractx.ToolRegistry,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}

	o := &Orchestrator{
		store:  store,
		router: router,
		agents: agents,
		tools:  tools,
		now:    time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// AdvanceTurn feeds one user message into the loop and returns once the
// conversation is waiting on the user again.
func (o *Orchestrator) AdvanceTurn(ctx context.Context, sessionID string, text string) (TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return TurnResult{}, err
	}

	log.Info().
		Str("session_id", out.SessionID).
		Str("stage", out.Stage).
		Int("messages", len(out.Messages)).
		Msg("turn completed")

	return TurnResult{
		SessionID: out.SessionID,
		Reply:     out.Reply,
		Messages:  out.Messages,
		Stage:     out.Stage,
	}, nil
}
