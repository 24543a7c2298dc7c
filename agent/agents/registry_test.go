package agents

import (
	"context"
	"testing"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

type stubAgent struct {
	name contractx.AgentName
}

func (s *stubAgent) Name() contractx.AgentName { return s.name }

func (s *stubAgent) Process(ctx context.Context, session *statex.SessionState) (contractx.Decision, error) {
	return contractx.Decision{}, nil
}

func TestRegistryResolvesByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		&stubAgent{name: contractx.AgentNeedsAssessment},
		&stubAgent{name: contractx.AgentDesign},
		nil,
	)

	if _, ok := r.Agent(contractx.AgentNeedsAssessment); !ok {
		t.Fatal("needs_assessment not resolvable")
	}
	if _, ok := r.Agent(contractx.AgentDesign); !ok {
		t.Fatal("design not resolvable")
	}
	if _, ok := r.Agent(contractx.AgentMeasurement); ok {
		t.Fatal("measurement should not resolve")
	}
	if got := len(r.Names()); got != 2 {
		t.Fatalf("Names() length = %d, want 2", got)
	}
}
