package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Plain passes the text through unchanged, e.g. when stdout is not a terminal.
func NewRenderer(plain bool) func(string) (string, error) {
	if plain {
		return func(markdown string) (string, error) {
			return strings.TrimSpace(markdown) + "\n", nil
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return NewRenderer(true)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
