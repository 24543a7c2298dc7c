package supervisor

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

// Models wrap their routing JSON in ever-creative envelopes: a bare object,
// {"output": {...}}, {"data": {...}}, or the whole object double-encoded as
// a JSON string. ResponseUnwrapper implementations each try one shape; the
// chain runs them in order and takes the first success.

type ResponseUnwrapper interface {
	Name() string
	TryExtract(raw []byte) (contractx.RouteDecision, bool)
}

type directUnwrapper struct{}

func (directUnwrapper) Name() string { return "direct" }

func (directUnwrapper) TryExtract(raw []byte) (contractx.RouteDecision, bool) {
	var dec contractx.RouteDecision
	if err := json.Unmarshal(raw, &dec); err != nil {
		return contractx.RouteDecision{}, false
	}
	if dec.NextDestination == "" {
		return contractx.RouteDecision{}, false
	}
	return dec, true
}

// keyUnwrapper digs one level under a fixed key and re-runs the chain on
// whatever it finds there.
type keyUnwrapper struct {
	key string
}

func (u keyUnwrapper) Name() string { return "key:" + u.key }

func (u keyUnwrapper) TryExtract(raw []byte) (contractx.RouteDecision, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return contractx.RouteDecision{}, false
	}
	inner, ok := envelope[u.key]
	if !ok {
		return contractx.RouteDecision{}, false
	}
	dec, err := UnwrapDecision(inner)
	if err != nil {
		return contractx.RouteDecision{}, false
	}
	return dec, true
}

// stringUnwrapper handles double-encoded payloads: the raw bytes are a JSON
// string whose contents are themselves JSON.
type stringUnwrapper struct{}

func (stringUnwrapper) Name() string { return "json-string" }

func (stringUnwrapper) TryExtract(raw []byte) (contractx.RouteDecision, bool) {
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return contractx.RouteDecision{}, false
	}
	inner = strings.TrimSpace(inner)
	if inner == "" || (inner[0] != '{' && inner[0] != '"') {
		return contractx.RouteDecision{}, false
	}
	dec, err := UnwrapDecision([]byte(inner))
	if err != nil {
		return contractx.RouteDecision{}, false
	}
	return dec, true
}

var unwrapChain = []ResponseUnwrapper{
	directUnwrapper{},
	keyUnwrapper{key: "output"},
	keyUnwrapper{key: "data"},
	keyUnwrapper{key: "result"},
	keyUnwrapper{key: "value"},
	keyUnwrapper{key: "response"},
	keyUnwrapper{key: "content"},
	stringUnwrapper{},
}

// UnwrapDecision extracts a routing decision from a model response,
// tolerating the envelope shapes the chain knows about.
func UnwrapDecision(raw []byte) (contractx.RouteDecision, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	// Models love fencing JSON in markdown.
	trimmed = stripCodeFence(trimmed)
	for _, u := range unwrapChain {
		if dec, ok := u.TryExtract([]byte(trimmed)); ok {
			return dec, nil
		}
	}
	return contractx.RouteDecision{}, fmt.Errorf("%w: no unwrapper matched response", contractx.ErrSchemaViolation)
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
