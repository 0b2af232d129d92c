package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rbright/mockinterview/internal/feedback"
)

// Markdown renders doc: a header, the transcript of questions and answers,
// then the feedback sections.
func Markdown(w io.Writer, doc Document) error {
	var b strings.Builder

	b.WriteString("# Mock interview feedback\n\n")
	if doc.JobRole != "" {
		fmt.Fprintf(&b, "- Role: %s\n", doc.JobRole)
	}
	if doc.InterviewType != "" {
		fmt.Fprintf(&b, "- Type: %s\n", doc.InterviewType)
	}
	if !doc.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Date: %s\n", doc.StartedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")

	if len(doc.Questions) > 0 {
		b.WriteString("## Transcript\n\n")
		for i, q := range doc.Questions {
			answer, asked := doc.Answers[q]
			if !asked {
				continue
			}
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, q)
			if strings.TrimSpace(answer) == "" {
				answer = "(no answer)"
			}
			fmt.Fprintf(&b, "   %s\n", answer)
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	return feedback.Render(w, doc.Report)
}
