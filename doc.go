/*
Package lattice is a small workflow-graph engine for building LLM agents and
other step-by-step automations.

A workflow is a directed graph of nodes that share one typed state value. Nodes
are plain Go functions; edges are either fixed or chosen at runtime by a
selector. Every run is recorded as an append-only log of events, so the state of
a run at any point can be rebuilt by replaying its log.

# Packages

  - pkg/graph: Builder and Compiled graph, with the reserved Start and End nodes.
  - pkg/runner: executes a compiled graph breadth-first and records the run.
  - pkg/store: the event-sourced store that runs and transcripts are built on.
  - pkg/agent: a two-node tool-calling loop (model_step / function_step).
  - pkg/registry: named tools with JSON-schema validated arguments.
  - pkg/model: the model port, plus a scripted model for tests.
  - pkg/adapters: OpenAI, process tools, HTTP, MCP and run archives (memory, Redis, SQLite).

# Usage

Build a graph, compile it and run it:

	b := graph.New[State]()
	_ = b.AddNode("greet", greet)
	_ = b.AddEdge(graph.Start, "greet")

	g, err := b.Compile()
	if err != nil {
		log.Fatal(err)
	}

	out, err := runner.Run(ctx, g, State{Name: "Ada"})

Nodes without outgoing edges are connected to End when the graph is compiled.

An agent wires a model and a tool registry into the same engine:

	a, err := agent.New(agent.Options{
		Name:         "assistant",
		Instructions: "You are a helpful assistant.",
		Model:        openai.New(openai.DefaultModel),
		Tools:        tools,
	})
	res, err := a.Invoke(ctx, "What is 2+2?")
	fmt.Println(agent.FinalReply(res.Output))
*/
package lattice
