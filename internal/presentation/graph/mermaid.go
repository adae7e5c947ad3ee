package graph

import (
	"fmt"
	"strings"

	engine "github.com/aretw0/lattice/pkg/graph"
)

// GraphOverlay contains dynamic run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNodes []string
}

// Topology is the part of a compiled graph needed to draw it.
type Topology interface {
	Nodes() []string
	Topology() []engine.EdgeInfo
}

// GenerateMermaid produces a Mermaid flowchart syntax string for g.
// It applies semantic styling:
// - Start: ((Circle))
// - End: (((Double circle)))
// - Router (conditional source): {{Hexagon}}
// - Default: [Rectangle]
// Conditional edges are labelled "?" and edges added by Compile are dotted.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g Topology, overlay *GraphOverlay) string {
	edges := g.Topology()

	routers := make(map[string]bool)
	for _, e := range edges {
		if e.Conditional {
			routers[e.From] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.Nodes() {
		opener, closer := "[", "]"
		switch {
		case id == engine.Start:
			opener, closer = "((", "))"
		case id == engine.End:
			opener, closer = "(((", ")))"
		case routers[id]:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, escapeLabel(id), closer)
	}

	for _, e := range edges {
		from := sanitizeMermaidID(e.From)
		switch {
		case e.Conditional:
			for _, to := range e.Targets {
				fmt.Fprintf(&sb, "    %s -- \"?\" --> %s\n", from, sanitizeMermaidID(to))
			}
		case e.Implicit:
			fmt.Fprintf(&sb, "    %s -.-> %s\n", from, sanitizeMermaidID(e.To))
		default:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, sanitizeMermaidID(e.To))
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		for _, id := range overlay.CurrentNodes {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(id))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
