package ui

import (
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Wrap word-wraps value to width cells, hard-breaking words that do not fit.
func Wrap(value string, width int) string {
	if width <= 0 {
		return value
	}
	return wrap.String(wordwrap.String(value, width), width)
}

// WrapIndent wraps value to width and indents continuation lines by hang
// cells, for log lines like "[09:00:01] INFO: ...".
func WrapIndent(value string, width, hang int) string {
	if width <= hang || hang <= 0 {
		return Wrap(value, width)
	}
	wrapped := Wrap(value, width-hang)
	first, rest, found := strings.Cut(wrapped, "\n")
	if !found {
		return first
	}
	return first + "\n" + indent.String(rest, uint(hang))
}
