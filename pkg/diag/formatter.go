package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Format renders err with the offending source line and a caret underline
// when err is an *Error with a span inside source. Other errors are
// rendered with their plain message.
func Format(filename, source string, err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if !errors.As(err, &de) || de.Span.IsZero() {
		if filename != "" {
			return fmt.Sprintf("%s: %v", filename, err)
		}
		return err.Error()
	}

	var b strings.Builder
	if filename != "" {
		b.WriteString(filename)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d: %s: %s", de.Span.Start.Line, de.Span.Start.Column, de.Kind, de.Message)

	lines := strings.Split(source, "\n")
	line := de.Span.Start.Line
	if line < 1 || line > len(lines) {
		return b.String()
	}
	text := strings.TrimRight(lines[line-1], "\r")
	gutter := fmt.Sprintf("%4d | ", line)
	b.WriteByte('\n')
	b.WriteString(gutter)
	b.WriteString(text)
	b.WriteByte('\n')

	col := de.Span.Start.Column
	if col < 1 {
		col = 1
	}
	width := de.Span.To - de.Span.From
	if rest := len(text) - (col - 1); width > rest {
		width = rest
	}
	if width < 1 {
		width = 1
	}
	b.WriteString(strings.Repeat(" ", len(gutter)-2))
	b.WriteString("| ")
	b.WriteString(strings.Repeat(" ", col-1))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}
