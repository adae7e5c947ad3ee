// Package agent runs a tool calling model loop on top of the graph engine.
//
// The agent graph has two nodes:
//
//	__START__ -> model_step -> {function_step, __END__}
//	function_step -> model_step
//
// model_step sends the conversation and the tool catalog to the model and
// appends its output. function_step executes the function calls the model
// requested and appends one output per call. The run ends when the model
// answers with an assistant message or after MaxIterations model calls.
//
// Usage:
//
//	tools := registry.NewRegistry(echoTool)
//	a, err := agent.New(agent.Options{
//	    Name:         "echo",
//	    Instructions: "You repeat what the user says.",
//	    Model:        openai.New("gpt-4o-mini"),
//	    Tools:        tools,
//	})
//	state, err := a.Run(ctx, "Please echo a message.")
//	fmt.Println(agent.FinalReply(state))
package agent
