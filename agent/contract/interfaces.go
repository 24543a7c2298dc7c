package contract

import (
	"context"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Agent is one specialist phase agent. Process reads and mutates the session
// and returns exactly one Decision.
type Agent interface {
	Name() AgentName
	Process(ctx context.Context, session *statex.SessionState) (Decision, error)
}

type AgentRegistry interface {
	Agent(name AgentName) (Agent, bool)
}

// Tool is a named side-effecting operation invoked with parameters and the
// session. Errors are converted to user-visible apologies by the caller.
type Tool interface {
	Name() string
	Run(ctx context.Context, params map[string]any, session *statex.SessionState) (ToolOutput, error)
}

type ToolRegistry interface {
	Tool(name string) (Tool, bool)
}

// Router decides the next destination for the current turn. It is total: it
// must return a usable Action even when its model backend is down.
type Router interface {
	Decide(ctx context.Context, userMessage string, session *statex.SessionState) Action
}

// DecisionModel is the LLM backend behind the router's probabilistic stage.
type DecisionModel interface {
	Decide(ctx context.Context, req RouteRequest) (RouteDecision, error)
}
