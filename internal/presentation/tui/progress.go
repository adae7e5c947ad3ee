package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/muesli/termenv"
)

const maxPreview = 120

// ProgressHooks prints tool activity to w while an agent runs.
func ProgressHooks(w io.Writer) domain.LifecycleHooks {
	out := termenv.NewOutput(w)
	var mu sync.Mutex

	return domain.LifecycleHooks{
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "%s %s %s\n",
				out.String("→").Foreground(out.Color("#818cf8")),
				out.String(e.ToolName).Bold(),
				out.String(preview(e.Input)).Faint())
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			mu.Lock()
			defer mu.Unlock()
			if e.IsError {
				fmt.Fprintf(w, "%s %s\n",
					out.String("✗").Foreground(out.Color("#fb7185")),
					preview(e.Output))
				return
			}
			fmt.Fprintf(w, "%s %s\n",
				out.String("←").Foreground(out.Color("#34d399")),
				out.String(preview(e.Output)).Faint())
		},
	}
}

func preview(v any) string {
	return truncate(fmt.Sprint(v))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxPreview {
		return s
	}
	return string(r[:maxPreview-1]) + "…"
}
