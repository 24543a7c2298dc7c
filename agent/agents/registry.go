// Package agents wires the specialist phase agents into the registry the step
// interpreter resolves destinations against.
package agents

import (
	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

type Registry struct {
	byName map[contractx.AgentName]contractx.Agent
}

var _ contractx.AgentRegistry = (*Registry)(nil)

func NewRegistry(list ...contractx.Agent) *Registry {
	r := &Registry{byName: make(map[contractx.AgentName]contractx.Agent, len(list))}
	for _, a := range list {
		if a == nil {
			continue
		}
		r.byName[a.Name()] = a
	}
	return r
}

func (r *Registry) Agent(name contractx.AgentName) (contractx.Agent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names lists the registered agents in registration-independent order.
func (r *Registry) Names() []contractx.AgentName {
	names := make([]contractx.AgentName, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
