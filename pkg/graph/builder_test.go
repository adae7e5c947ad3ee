package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inc(_ context.Context, n int) (int, error) { return n + 1, nil }

func always(target string) Selector[int] {
	return func(context.Context, int) (string, error) { return target, nil }
}

func TestNew_RegistersSentinels(t *testing.T) {
	b := New[int]()

	err := b.AddNode(Start, inc)
	var dup *domain.DuplicateNodeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, Start, dup.NodeID)

	require.ErrorAs(t, b.AddNode(End, inc), &dup)
}

func TestBuilder_AddNode(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))

	var dup *domain.DuplicateNodeError
	assert.ErrorAs(t, b.AddNode("a", inc), &dup)
	assert.Error(t, b.AddNode("nil", nil))
}

func TestBuilder_AddEdge_Unknown(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))

	var unknown *domain.UnknownNodeError
	require.ErrorAs(t, b.AddEdge("ghost", "a"), &unknown)
	assert.Equal(t, "ghost", unknown.NodeID)

	require.ErrorAs(t, b.AddEdge("a", "ghost"), &unknown)
	assert.Equal(t, "ghost", unknown.NodeID)

	assert.Error(t, b.AddEdge(End, "a"), "End must not get outgoing edges")
}

func TestBuilder_AddConditionalEdge_Validation(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))

	var unknown *domain.UnknownNodeError
	require.ErrorAs(t, b.AddConditionalEdge("a", []string{End, "ghost"}, always(End)), &unknown)
	assert.Equal(t, "ghost", unknown.NodeID)
	require.ErrorAs(t, b.AddConditionalEdge("ghost", []string{End}, always(End)), &unknown)

	assert.Error(t, b.AddConditionalEdge("a", nil, always(End)))
	assert.Error(t, b.AddConditionalEdge("a", []string{End}, nil))
}

func TestCompile_ZeroValueBuilder(t *testing.T) {
	var b Builder[int]

	_, err := b.Compile()
	var missing *domain.MissingSentinelError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, Start, missing.NodeID)

	// A zero builder still accepts nodes, but without sentinels it cannot compile.
	require.NoError(t, b.AddNode("a", inc))
	_, err = b.Compile()
	assert.ErrorAs(t, err, &missing)
}

func TestCompile_WiresLeavesToEnd(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))
	require.NoError(t, b.AddNode("b", inc))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddEdge("a", "b"))

	g, err := b.Compile()
	require.NoError(t, err)

	edges := g.Edges("b")
	require.Len(t, edges, 1)
	assert.Equal(t, End, edges[0].To)
	assert.True(t, edges[0].Implicit())

	assert.Empty(t, g.Edges(End))
	assert.False(t, g.Edges("a")[0].Implicit())
	assert.Equal(t, []string{Start, End, "a", "b"}, g.Nodes())
}

func TestCompile_IsolatedFromBuilder(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))
	require.NoError(t, b.AddEdge(Start, "a"))
	targets := []string{"a", End}
	require.NoError(t, b.AddConditionalEdge("a", targets, always(End)))

	g, err := b.Compile()
	require.NoError(t, err)
	before := g.Topology()

	// Mutating the builder and the caller's slice after compilation has no effect.
	targets[0] = "mutated"
	require.NoError(t, b.AddNode("late", inc))
	require.NoError(t, b.AddEdge(Start, "late"))
	require.NoError(t, b.AddEdge("a", "late"))

	assert.Equal(t, before, g.Topology())
	_, ok := g.Node("late")
	assert.False(t, ok)

	// Compiling again picks the additions up and leaves the first graph alone.
	g2, err := b.Compile()
	require.NoError(t, err)
	assert.Len(t, g2.Edges(Start), 2)
	assert.Len(t, g.Edges(Start), 1)
}

func TestCompiled_EdgesReturnsCopy(t *testing.T) {
	b := New[int]()
	require.NoError(t, b.AddNode("a", inc))
	require.NoError(t, b.AddConditionalEdge(Start, []string{"a", End}, always("a")))

	g, err := b.Compile()
	require.NoError(t, err)

	edges := g.Edges(Start)
	edges[0].Targets[0] = "x"
	assert.Equal(t, []string{"a", End}, g.Edges(Start)[0].Targets)
}

func TestCompiled_Topology(t *testing.T) {
	b := New[int](WithName[int]("demo"))
	require.NoError(t, b.AddNode("a", inc))
	require.NoError(t, b.AddNode("b", inc))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddConditionalEdge("a", []string{"b", End}, always("b")))

	g, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, "demo", g.Name())
	assert.Equal(t, []EdgeInfo{
		{From: Start, To: "a"},
		{From: "a", Targets: []string{"b", End}, Conditional: true},
		{From: "b", To: End, Implicit: true},
	}, g.Topology())
}

func TestCompiled_Schema(t *testing.T) {
	v := schema.Func[int](func(n int) (int, error) {
		if n < 0 {
			return 0, errors.New("negative")
		}
		return n, nil
	})

	g, err := New[int](WithSchema[int](v)).Compile()
	require.NoError(t, err)
	require.NotNil(t, g.Schema())

	_, err = g.Schema().Validate(-1)
	assert.EqualError(t, err, "negative")

	plain, err := New[int]().Compile()
	require.NoError(t, err)
	assert.Nil(t, plain.Schema())
}
