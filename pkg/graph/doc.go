/*
Package graph provides the builder and the immutable compiled form of Lattice workflows.

A workflow is a directed, possibly cyclic graph of nodes. Each node is a function
from one state snapshot to the next. Edges decide which nodes receive a node's
output: unconditional edges always fire, conditional edges call a selector that
picks one member of a target set declared up front.

Every graph contains the sentinels Start and End. Compile takes an independent
snapshot of the builder and wires every node without outgoing edges to End, so
later changes to the builder never affect a compiled graph.

Example usage:

	b := graph.New[map[string]any]()
	_ = b.AddNode("sum", sum)
	_ = b.AddNode("sqrt", sqrt)
	_ = b.AddEdge(graph.Start, "sum")
	_ = b.AddConditionalEdge("sum", []string{"sqrt", graph.End}, positiveOrEnd)

	g, err := b.Compile()
	// ... pass g to runner.Run(ctx, g, initial)
*/
package graph
