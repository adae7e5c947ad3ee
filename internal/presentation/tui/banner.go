package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _          _   _   _          ", "#818cf8"},
	{" | |    __ _| |_| |_(_) ___ ___ ", "#a78bfa"},
	{" | |   / _` | __| __| |/ __/ _ \\", "#c084fc"},
	{" | |__| (_| | |_| |_| | (_|  __/", "#e879f9"},
	{" |_____\\__,_|\\__|\\__|_|\\___\\___|", "#f472b6"},
}

// PrintBanner writes the Lattice ASCII banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w)
}
