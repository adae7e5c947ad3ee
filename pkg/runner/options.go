package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/google/uuid"
)

// EventHandler observes every event dispatched during a run, together with the
// run record it produced.
type EventHandler[S any] func(record domain.RunRecord[S], event domain.Event[S])

// Option defines a functional option for configuring a run.
type Option[S any] func(*config[S])

type config[S any] struct {
	runID    string
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	handlers []EventHandler[S]
	archive  ports.RunStore
	workflow string
	now      func() time.Time
}

func newConfig[S any](opts []Option[S]) *config[S] {
	c := &config[S]{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	return c
}

// WithEventHandler subscribes fn to the run's store before RUN_START is dispatched.
// It may be given several times.
func WithEventHandler[S any](fn EventHandler[S]) Option[S] {
	return func(c *config[S]) {
		if fn != nil {
			c.handlers = append(c.handlers, fn)
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(c *config[S]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers callbacks fired around the run and each node.
func WithLifecycleHooks[S any](hooks domain.LifecycleHooks) Option[S] {
	return func(c *config[S]) {
		c.hooks = domain.ComposeHooks(c.hooks, hooks)
	}
}

// WithRunID sets the run identifier instead of a random UUID.
func WithRunID[S any](id string) Option[S] {
	return func(c *config[S]) {
		c.runID = id
	}
}

// WithArchive saves a summary of the run to store once it has finished,
// whether it completed or failed. Archive failures are logged, not returned.
func WithArchive[S any](store ports.RunStore) Option[S] {
	return func(c *config[S]) {
		c.archive = store
	}
}

// WithWorkflow overrides the workflow name recorded in logs and archives.
// It defaults to the compiled graph's name.
func WithWorkflow[S any](name string) Option[S] {
	return func(c *config[S]) {
		c.workflow = name
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock[S any](now func() time.Time) Option[S] {
	return func(c *config[S]) {
		if now != nil {
			c.now = now
		}
	}
}
