package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunRecord(t *testing.T) {
	rec := NewRunRecord(map[string]any{"a": 1})

	assert.Equal(t, RunIdle, rec.Status)
	assert.Empty(t, rec.ActiveNodes)
	assert.Equal(t, map[string]any{"a": 1}, rec.Nodes[Start])

	_, ok := rec.Output()
	assert.False(t, ok)

	rec.Nodes[End] = map[string]any{"b": 2}
	out, ok := rec.Output()
	require.True(t, ok)
	assert.Equal(t, 2, out["b"])
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, RunIdle.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunError.Terminal())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("field missing")

	var input *InvalidInputError
	err := fmt.Errorf("run: %w", &InvalidInputError{Err: cause})
	require.ErrorAs(t, err, &input)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid input: field missing", input.Error())

	var parse *ToolArgsParseError
	err = fmt.Errorf("wrapped: %w", &ToolArgsParseError{Tool: "sum", Err: cause})
	require.ErrorAs(t, err, &parse)
	assert.Equal(t, "sum", parse.Tool)
	assert.ErrorIs(t, err, cause)
}

func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DuplicateNodeError{NodeID: "a"}, `node "a" already exists`},
		{&UnknownNodeError{NodeID: "b"}, `node "b" does not exist`},
		{&MissingSentinelError{NodeID: Start}, `graph is missing sentinel node "__START__"`},
		{&InvalidEdgeTargetError{From: "a", Target: "x", Targets: []string{"b", "c"}}, `conditional edge from "a" selected "x", expected one of [b, c]`},
		{&RunDidNotTerminateError{RunID: "r1"}, "run r1 did not reach __END__"},
		{&ToolNotFoundError{Name: "nope"}, "tool with name nope not found"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestMessage_Predicates(t *testing.T) {
	assert.True(t, AssistantMessage("hi").IsAssistant())
	assert.False(t, UserMessage("hi").IsAssistant())
	assert.False(t, Message{Type: MessageTypeFunctionCall, Role: RoleAssistant}.IsAssistant())

	assert.True(t, FunctionCall("c1", "sum", "{}").IsFunctionCall())
	assert.False(t, Message{Type: MessageTypeFunctionCall}.IsFunctionCall())
	assert.False(t, FunctionCallOutput("c1", "3").IsFunctionCall())
}

func TestComposeHooks(t *testing.T) {
	var calls []string
	a := LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *NodeEvent) { calls = append(calls, "a:"+e.NodeID) },
	}
	b := LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *NodeEvent) { calls = append(calls, "b:"+e.NodeID) },
		OnRunEnd:    func(_ context.Context, e *RunEvent) { calls = append(calls, "b:end") },
	}

	h := ComposeHooks(a, LifecycleHooks{}, b)
	h.OnNodeEnter(context.Background(), &NodeEvent{NodeID: "n"})
	h.OnRunEnd(context.Background(), &RunEvent{})

	assert.Equal(t, []string{"a:n", "b:n", "b:end"}, calls)
	assert.Nil(t, h.OnToolCall)
}
