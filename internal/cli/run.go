package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/runner"
)

// RunOptions configures a single agent run from the command line.
type RunOptions struct {
	// JSON writes every run event to Out as NDJSON instead of the rendered reply.
	JSON bool
	// Plain prints the reply without markdown rendering.
	Plain bool
	// Quiet hides tool activity.
	Quiet bool

	Out io.Writer
	Err io.Writer
}

// RunPrompt runs the agent once on prompt and prints its final reply.
// Interruptions end the run without an error.
func RunPrompt(ctx context.Context, app *App, m model.Model, prompt string, opts RunOptions) error {
	var hooks []domain.LifecycleHooks
	if !opts.Quiet && !opts.JSON {
		hooks = append(hooks, tui.ProgressHooks(opts.Err))
	}
	a, err := app.NewAgent(m, hooks...)
	if err != nil {
		return err
	}

	runOpts := []runner.Option[agent.State]{runner.WithArchive[agent.State](app.Archive)}
	var encodeErr error
	if opts.JSON {
		enc := json.NewEncoder(opts.Out)
		runOpts = append(runOpts, runner.WithEventHandler[agent.State](func(_ domain.RunRecord[agent.State], e domain.Event[agent.State]) {
			if encodeErr == nil {
				encodeErr = enc.Encode(e)
			}
		}))
	}

	res, err := a.Invoke(ctx, prompt, runOpts...)
	if err != nil {
		if isInterrupted(err) {
			printSystemMessage(opts.Err, "Interrupted.")
		}
		return handleExecutionError(err)
	}
	if opts.JSON {
		return encodeErr
	}

	render := tui.NewRenderer(opts.Plain)
	out, err := render(agent.FinalReply(res.Output))
	if err != nil {
		return err
	}
	_, err = io.WriteString(opts.Out, out)
	return err
}
