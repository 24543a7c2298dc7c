package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
	supervisorx "github.com/laserhenk/henk-agent/agent/supervisor"
)

// DecisionGraph runs the routing model. The graph ends at the raw message
// instead of a JSON parser node: routing responses arrive in several
// envelope shapes, so schema handling lives in the unwrap chain.
type DecisionGraph struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.DecisionModel = (*DecisionGraph)(nil)

func NewDecisionGraph(ctx context.Context, chatModel einomodel.BaseChatModel) (*DecisionGraph, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add decision prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add decision model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add decision edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add decision edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add decision edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("supervisor.decision_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile decision graph: %w", err)
	}
	return &DecisionGraph{runner: runner}, nil
}

func (g *DecisionGraph) Decide(ctx context.Context, req contractx.RouteRequest) (contractx.RouteDecision, error) {
	history := make([]*schema.Message, 0, len(req.History))
	for _, m := range req.History {
		switch m.Role {
		case statex.RoleAssistant:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		default:
			history = append(history, schema.UserMessage(m.Content))
		}
	}

	msg, err := g.runner.Invoke(ctx, map[string]any{
		"system":  req.SystemPrompt,
		"history": history,
		"input":   req.UserMessage,
	})
	if err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: decision graph: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: decision graph returned no message", contractx.ErrModelInvoke)
	}

	return supervisorx.UnwrapDecision([]byte(msg.Content))
}
