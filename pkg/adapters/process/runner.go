package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// EnvPrefix prefixes the environment variables carrying tool arguments.
const EnvPrefix = "LATTICE_ARG_"

// ErrNotRegistered is returned when executing a tool missing from the allow-list.
var ErrNotRegistered = errors.New("process tool not registered")

// Runner executes local processes as tools.
// It follows a Strict Registry pattern for security (Allow-Listing).
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools []ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for _, tool := range tools {
			r.Register(tool)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(cfg ProcessConfig) {
	r.registry[cfg.Name] = cfg
}

// Names returns the allow-listed tool names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named process and returns its trimmed stdout.
//
// Arguments are never passed as command line flags. Each one is exposed as an
// environment variable LATTICE_ARG_<NAME>; strings, numbers and booleans are
// formatted as is, anything else is JSON encoded.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	proc, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	if proc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proc.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = time.Second

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+formatArg(v))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	began := time.Now()
	err := cmd.Run()
	r.logger.Debug("process tool finished", "tool", name, "duration", time.Since(began), "error", err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("execution of %s interrupted: %w", name, ctxErr)
		}
		return "", fmt.Errorf("execution of %s failed: %w. Stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Tool exposes the named process as a registry tool.
func (r *Runner) Tool(name string) (registry.Tool, error) {
	proc, ok := r.registry[name]
	if !ok {
		return registry.Tool{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	tool := registry.Tool{
		Name:        proc.Name,
		Description: proc.Description,
		Function: func(ctx context.Context, args map[string]any) (any, error) {
			return r.Execute(ctx, name, args)
		},
	}
	if len(proc.Parameters) > 0 {
		params, err := schema.ParseTypeMap(proc.Parameters)
		if err != nil {
			return registry.Tool{}, fmt.Errorf("tool %s: %w", name, err)
		}
		tool.Parameters = params
	}
	return tool, nil
}

// Register allow-lists cfgs and adds each one to reg as a tool.
func Register(reg *registry.Registry, cfgs []ProcessConfig, opts ...RunnerOption) (*Runner, error) {
	r := NewRunner(append(opts, WithRegistry(cfgs))...)
	for _, cfg := range cfgs {
		tool, err := r.Tool(cfg.Name)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func formatArg(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int, int64, float64, bool:
		return fmt.Sprint(val)
	}
	if encoded, err := json.Marshal(v); err == nil {
		return string(encoded)
	}
	return fmt.Sprintf("%v", v)
}
