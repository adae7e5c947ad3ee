package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Execute(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register(ProcessConfig{Name: "hello", Command: "echo", Args: []string{"hello"}})
	runner.Register(ProcessConfig{
		Name:    "echo_env",
		Command: "sh",
		Args:    []string{"-c", `echo "$LATTICE_ARG_MSG $LATTICE_ARG_COUNT $LATTICE_ARG_TAGS $GREETING"`},
		Environment: map[string]string{
			"GREETING": "hi",
		},
	})

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), "hacker_script", nil)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("Passes Arguments via Env Vars", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "echo_env", map[string]any{
			"msg":   "SecretMessage",
			"count": 3.0,
			"tags":  []any{"a", "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, `SecretMessage 3 ["a","b"] hi`, out)
	})

	assert.Equal(t, []string{"echo_env", "hello"}, runner.Names())
}

func TestRunner_Execute_Failure(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner(WithRegistry([]ProcessConfig{
		{Name: "fail", Command: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}},
		{Name: "slow", Command: "sh", Args: []string{"-c", "sleep 5"}, Timeout: 100 * time.Millisecond},
	}))

	_, err := runner.Execute(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "Stderr: oops")

	start := time.Now()
	_, err = runner.Execute(context.Background(), "slow", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRegister(t *testing.T) {
	skipOnWindows(t)

	reg := registry.NewRegistry()
	_, err := Register(reg, []ProcessConfig{{
		Name:        "shout",
		Description: "Upper cases the text",
		Command:     "sh",
		Args:        []string{"-c", `printf '%s' "$LATTICE_ARG_TEXT" | tr a-z A-Z`},
		Parameters:  map[string]string{"text": "string"},
	}})
	require.NoError(t, err)

	out, err := reg.Invoke(context.Background(), "shout", `{"text":"quiet"}`)
	require.NoError(t, err)
	assert.Equal(t, "QUIET", out)

	_, err = reg.Invoke(context.Background(), "shout", `{}`)
	var parseErr *domain.ToolArgsParseError
	assert.ErrorAs(t, err, &parseErr, "parameters are validated before the process starts")

	def := reg.Definitions()[0]
	assert.Equal(t, "Upper cases the text", def.Description)
	assert.Equal(t, []string{"text"}, def.Parameters["required"])
}

func TestRegister_BadParameterType(t *testing.T) {
	_, err := Register(registry.NewRegistry(), []ProcessConfig{{
		Name:       "bad",
		Command:    "true",
		Parameters: map[string]string{"x": "complex128"},
	}})
	assert.Error(t, err)
}
