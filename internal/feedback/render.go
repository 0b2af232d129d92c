package feedback

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a plain-text view of report suitable for a terminal or a
// markdown report file.
func Render(w io.Writer, report Report) error {
	var b strings.Builder

	if report.Scores != nil {
		b.WriteString("## Scores\n\n")
		fmt.Fprintf(&b, "- Quality: %d%%\n", Percent(report.Scores.Quality))
		fmt.Fprintf(&b, "- Clarity: %d%%\n", Percent(report.Scores.Clarity))
		fmt.Fprintf(&b, "- Relevance: %d%%\n\n", Percent(report.Scores.Relevance))
	}

	writeSection(&b, "Overall Performance", report.OverallPerformance)

	b.WriteString("## Suggestions for Improvement\n\n")
	if len(report.Suggestions) == 0 {
		b.WriteString("(none)\n\n")
	}
	for _, s := range report.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	if len(report.Suggestions) > 0 {
		b.WriteString("\n")
	}

	writeSection(&b, "Specific Feedback", report.SpecificFeedback)

	if report.Selected != nil {
		if *report.Selected {
			b.WriteString("Result: selected for the next round.\n")
		} else {
			b.WriteString("Result: not selected this time.\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if strings.TrimSpace(body) == "" {
		b.WriteString("(none)\n\n")
		return
	}
	b.WriteString(body)
	b.WriteString("\n\n")
}
