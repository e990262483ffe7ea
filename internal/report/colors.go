package report

import (
	"io"

	"github.com/fatih/color"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan, color.Bold)
)

func colorPrintln(w io.Writer, c *color.Color, a ...any) {
	_, _ = c.Fprintln(w, a...)
}

func colorPrintf(w io.Writer, c *color.Color, format string, a ...any) {
	_, _ = c.Fprintf(w, format, a...)
}

// Failure prints err in red.
func Failure(w io.Writer, err error) {
	colorPrintf(w, Red, "error: %v\n", err)
}
