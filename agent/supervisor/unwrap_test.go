package supervisor

import (
	"errors"
	"testing"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

func TestUnwrapDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain object",
			raw:  `{"next_destination":"design","reasoning":"style question","confidence":0.8}`,
			want: "design",
		},
		{
			name: "output envelope",
			raw:  `{"output":{"next_destination":"measurement","confidence":0.7}}`,
			want: "measurement",
		},
		{
			name: "data envelope",
			raw:  `{"data":{"next_destination":"fabric_search"}}`,
			want: "fabric_search",
		},
		{
			name: "nested envelopes",
			raw:  `{"result":{"output":{"next_destination":"end"}}}`,
			want: "end",
		},
		{
			name: "double encoded string",
			raw:  `"{\"next_destination\":\"clarification\"}"`,
			want: "clarification",
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"next_destination\":\"needs_assessment\"}\n```",
			want: "needs_assessment",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dec, err := UnwrapDecision([]byte(tt.raw))
			if err != nil {
				t.Fatalf("UnwrapDecision() error = %v", err)
			}
			if dec.NextDestination != tt.want {
				t.Fatalf("NextDestination = %q, want %q", dec.NextDestination, tt.want)
			}
		})
	}
}

func TestUnwrapDecisionRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "not json", `{"someting":"else"}`, `42`} {
		if _, err := UnwrapDecision([]byte(raw)); !errors.Is(err, contractx.ErrSchemaViolation) {
			t.Fatalf("UnwrapDecision(%q) error = %v, want ErrSchemaViolation", raw, err)
		}
	}
}
