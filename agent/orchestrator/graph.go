package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	nodex "github.com/laserhenk/henk-agent/agent/nodes"
)

// maxTurnSteps caps the node executions of a single turn. The longest
// legitimate chain (route, agent, tool, route, agent, handoff, agent) stays
// well under half of this, so hitting the cap means a routing bug rather
// than a long conversation.
const maxTurnSteps = 40

func (o *Orchestrator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("record_input",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordUserInput(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_input: %w", err)
	}

	if err := graph.AddLambdaNode("route_step",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteNextStep(ctx, in, o.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_step: %w", err)
	}

	if err := graph.AddLambdaNode("run_agent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunAgentStep(ctx, in, o.agents, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agent: %w", err)
	}

	if err := graph.AddLambdaNode("run_tool",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunToolStep(ctx, in, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_tool: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_turn: %w", err)
	}

	if err := graph.AddBranch("record_input", compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if in.Awaiting {
				return "save_session", nil
			}
			return "route_step", nil
		},
		map[string]bool{
			"route_step":   true,
			"save_session": true,
		},
	)); err != nil {
		return nil, fmt.Errorf("add branch record_input: %w", err)
	}

	if err := graph.AddBranch("route_step", compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			switch {
			case in.Awaiting || in.Pending == nil:
				return "save_session", nil
			case in.Pending.Kind == contractx.ActionTool:
				return "run_tool", nil
			default:
				return "run_agent", nil
			}
		},
		map[string]bool{
			"run_agent":    true,
			"run_tool":     true,
			"save_session": true,
		},
	)); err != nil {
		return nil, fmt.Errorf("add branch route_step: %w", err)
	}

	// Both step nodes loop back into routing while a continuation is queued.
	// The queued step is re-gated there before it runs.
	for _, node := range []string{"run_agent", "run_tool"} {
		if err := graph.AddBranch(node, compose.NewGraphBranch(
			func(ctx context.Context, in *nodex.GraphState) (string, error) {
				if in == nil {
					return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
				}
				if in.Awaiting || in.Pending == nil {
					return "save_session", nil
				}
				return "route_step", nil
			},
			map[string]bool{
				"route_step":   true,
				"save_session": true,
			},
		)); err != nil {
			return nil, fmt.Errorf("add branch %s: %w", node, err)
		}
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_session"},
		{"load_session", "record_input"},
		{"save_session", "finalize_turn"},
		{"finalize_turn", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx,
		compose.WithGraphName("orchestrator.turn"),
		compose.WithMaxRunSteps(maxTurnSteps),
	)
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
