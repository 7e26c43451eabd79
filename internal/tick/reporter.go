package tick

import (
	"fmt"
	"strings"
)

// Reporter receives diagnostic state from Tickable.ReportState.
type Reporter interface {
	Heading(title string)
	Value(name string, v interface{})
}

// TextReporter renders reported state as indented "name: value" lines.
type TextReporter struct {
	b strings.Builder
}

// Heading starts a new section.
func (r *TextReporter) Heading(title string) {
	fmt.Fprintf(&r.b, "%s\n", title)
}

// Value writes one named value. Floats use %g so that NaN and infinities
// render readably.
func (r *TextReporter) Value(name string, v interface{}) {
	switch x := v.(type) {
	case float64:
		fmt.Fprintf(&r.b, "  %s: %g\n", name, x)
	default:
		fmt.Fprintf(&r.b, "  %s: %v\n", name, v)
	}
}

// String returns everything reported so far.
func (r *TextReporter) String() string { return r.b.String() }

// Clear discards the buffered report.
func (r *TextReporter) Clear() { r.b.Reset() }
