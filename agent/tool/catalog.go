// Package tool holds the side-effecting operations the router can invoke:
// fabric search and display, mood board generation, CRM lead and appointment
// creation, favorites, pricing and comparisons. Every tool degrades to a
// deterministic offline behavior when its backend dependency is absent, so
// the full conversation flow runs without credentials.
package tool

import (
	"context"
	"sort"
	"strings"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	fabricx "github.com/laserhenk/henk-agent/agent/fabric"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// FabricSearcher is the catalog surface the fabric tools need.
type FabricSearcher interface {
	Search(ctx context.Context, q fabricx.Query) ([]statex.Fabric, error)
	ByCode(ctx context.Context, code string) (statex.Fabric, error)
}

// ImageGenerator produces a hosted image URL for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CRM is the lead and appointment surface of the sales backend.
type CRM interface {
	EnsurePerson(ctx context.Context, name, email, phone string) (int64, error)
	CreateLead(ctx context.Context, title string, personID int64, valueEUR int) (int64, error)
	CreateAppointment(ctx context.Context, subject, date, clock, location string, personID int64) (int64, error)
}

type Registry struct {
	tools map[string]contractx.Tool
}

var _ contractx.ToolRegistry = (*Registry)(nil)

func NewRegistry(tools ...contractx.Tool) *Registry {
	r := &Registry{tools: make(map[string]contractx.Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t contractx.Tool) {
	if t == nil || t.Name() == "" {
		return
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Tool(name string) (contractx.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deps bundles the external collaborators. Nil entries switch the affected
// tools into their offline behavior.
type Deps struct {
	Fabrics FabricSearcher
	Images  ImageGenerator
	CRM     CRM
	Now     func() time.Time
}

// BuildAll wires the full tool set.
func BuildAll(deps Deps) *Registry {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return NewRegistry(
		NewFabricSearch(deps.Fabrics, now),
		NewShowFabrics(now),
		NewMoodBoard(deps.Images, now),
		NewCRMLead(deps.CRM),
		NewAppointment(deps.CRM),
		NewMarkFavorite(),
		NewPricing(),
		NewComparison(),
	)
}

/* ------------------------------ param access ------------------------------ */

func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func stringSliceParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

func boolParam(params map[string]any, key string) bool {
	v, ok := params[key].(bool)
	return ok && v
}
