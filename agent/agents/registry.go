// Package agents assembles the concrete agent graph: triage routing to the
// language assistants, and the tutor pair for math sessions.
package agents

import (
	"fmt"
	"sort"

	contractx "github.com/amontero/dialogo/agent/contract"
)

type mapRegistry struct {
	byName map[contractx.AgentName]contractx.ChatAgent
}

// NewRegistry builds a registry from the given agents. Every handoff target
// an agent declares must itself be registered.
func NewRegistry(list ...contractx.ChatAgent) (contractx.Registry, error) {
	byName := make(map[contractx.AgentName]contractx.ChatAgent, len(list))
	for _, a := range list {
		if a == nil {
			return nil, fmt.Errorf("%w: nil agent", contractx.ErrValidation)
		}
		name := a.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: agent with empty name", contractx.ErrValidation)
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate agent %s", contractx.ErrValidation, name)
		}
		byName[name] = a
	}
	for _, a := range byName {
		for _, target := range a.Handoffs() {
			if _, ok := byName[target]; !ok {
				return nil, fmt.Errorf("%w: %s declares handoff to %s", contractx.ErrUnknownAgent, a.Name(), target)
			}
		}
	}
	return &mapRegistry{byName: byName}, nil
}

func (r *mapRegistry) Lookup(name contractx.AgentName) (contractx.ChatAgent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

func (r *mapRegistry) All() []contractx.ChatAgent {
	out := make([]contractx.ChatAgent, 0, len(r.byName))
	for _, a := range r.byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
