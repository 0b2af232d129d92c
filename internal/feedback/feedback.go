// Package feedback turns the remote service's free-form feedback text into
// structured sections.
package feedback

import (
	"regexp"
	"strings"
)

// Report is the structured view of one feedback response.
type Report struct {
	OverallPerformance string
	Suggestions        []string
	SpecificFeedback   string

	// Scores and Selected are only populated by the legacy score format.
	Scores   *Scores
	Selected *bool
}

type section int

const (
	sectionNone section = iota
	sectionOverall
	sectionSuggestions
	sectionSpecific
)

type heading struct {
	label   string
	section section
}

// Longer labels first so "Suggestions for Improvement" wins over "Suggestions".
var headings = []heading{
	{label: "overall performance", section: sectionOverall},
	{label: "suggestions for improvement", section: sectionSuggestions},
	{label: "suggestions", section: sectionSuggestions},
	{label: "specific feedback", section: sectionSpecific},
}

var (
	boldPattern     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern   = regexp.MustCompile(`\*([^*]+)\*`)
	headingPattern  = regexp.MustCompile(`^#+\s*`)
	listPattern     = regexp.MustCompile(`^(?:[-*+]\s+|\d+[.)]\s+)`)
	trailingMarkers = regexp.MustCompile(`^[*_\s]+|[*_\s]+$`)
)

// Parse splits canonical heading-formatted feedback into a Report.
//
// Content before the first recognised heading is discarded. Missing sections
// stay empty; Suggestions is never nil.
func Parse(raw string) Report {
	report := Report{Suggestions: []string{}}
	var overall, specific []string

	current := sectionNone
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		text := StripMarkdown(line)
		if text == "" {
			continue
		}

		if next, rest, ok := matchHeading(text); ok {
			current = next
			text = rest
			if text == "" {
				continue
			}
		}

		switch current {
		case sectionOverall:
			overall = append(overall, text)
		case sectionSuggestions:
			report.Suggestions = append(report.Suggestions, text)
		case sectionSpecific:
			specific = append(specific, text)
		}
	}

	report.OverallPerformance = strings.Join(overall, "\n")
	report.SpecificFeedback = strings.Join(specific, "\n")
	return report
}

// StripMarkdown removes emphasis, heading, and list markers from one line.
func StripMarkdown(line string) string {
	line = strings.TrimSpace(line)
	line = headingPattern.ReplaceAllString(line, "")
	line = listPattern.ReplaceAllString(line, "")
	line = boldPattern.ReplaceAllString(line, "$1")
	line = italicPattern.ReplaceAllString(line, "$1")
	return strings.TrimSpace(line)
}

// matchHeading reports whether text opens a section and returns any inline
// content that follows the label.
func matchHeading(text string) (section, string, bool) {
	lower := strings.ToLower(text)
	for _, h := range headings {
		if !strings.HasPrefix(lower, h.label) {
			continue
		}
		rest := text[len(h.label):]
		switch {
		case rest == "":
			return h.section, "", true
		case strings.HasPrefix(rest, ":"):
			return h.section, strings.TrimSpace(trailingMarkers.ReplaceAllString(rest[1:], "")), true
		case strings.TrimSpace(trailingMarkers.ReplaceAllString(rest, "")) == "":
			return h.section, "", true
		}
	}
	return sectionNone, "", false
}
