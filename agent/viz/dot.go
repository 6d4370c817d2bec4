// Package viz renders the agent handoff graph for inspection, either as
// Graphviz DOT or as a plain-text adjacency listing.
package viz

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/amontero/dialogo/agent/contract"
	toolx "github.com/amontero/dialogo/agent/tool"
)

// DOT renders the registry as a Graphviz digraph. Agents are boxes, tools
// are ellipses, handoffs are solid edges and tool access is dashed.
func DOT(registry contractx.Registry) string {
	agents := registry.All()

	var b strings.Builder
	b.WriteString("digraph agents {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for _, a := range agents {
		fmt.Fprintf(&b, "  %q;\n", a.Name())
	}

	tools := toolNames(agents)
	for _, t := range tools {
		fmt.Fprintf(&b, "  %q [shape=ellipse];\n", t)
	}

	for _, a := range agents {
		for _, target := range sortedHandoffs(a) {
			fmt.Fprintf(&b, "  %q -> %q;\n", a.Name(), target)
		}
		for _, info := range toolx.InfosFor(a.Name()) {
			if info == nil {
				continue
			}
			fmt.Fprintf(&b, "  %q -> %q [style=dashed];\n", a.Name(), info.Name)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// Text renders a one-line-per-agent adjacency listing for terminals.
func Text(registry contractx.Registry) string {
	agents := registry.All()

	var b strings.Builder
	for _, a := range agents {
		b.WriteString(string(a.Name()))

		if targets := sortedHandoffs(a); len(targets) > 0 {
			names := make([]string, len(targets))
			for i, t := range targets {
				names[i] = string(t)
			}
			b.WriteString(" -> ")
			b.WriteString(strings.Join(names, ", "))
		}

		if infos := toolx.InfosFor(a.Name()); len(infos) > 0 {
			names := make([]string, 0, len(infos))
			for _, info := range infos {
				if info != nil {
					names = append(names, info.Name)
				}
			}
			b.WriteString(" [tools: ")
			b.WriteString(strings.Join(names, ", "))
			b.WriteString("]")
		}

		b.WriteByte('\n')
	}
	return b.String()
}

func sortedHandoffs(a contractx.ChatAgent) []contractx.AgentName {
	targets := append([]contractx.AgentName(nil), a.Handoffs()...)
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

func toolNames(agents []contractx.ChatAgent) []string {
	seen := make(map[string]struct{})
	for _, a := range agents {
		for _, info := range toolx.InfosFor(a.Name()) {
			if info != nil && info.Name != "" {
				seen[info.Name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
